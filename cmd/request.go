package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vulnetix/bkctl/internal/api"
	"github.com/vulnetix/bkctl/internal/config"
)

var (
	requestData    string
	requestHeaders []string
	requestParams  []string
	requestNoAuth  bool
	getNoAuth      bool
)

// requestCmd sends an arbitrary call to the backend
var requestCmd = &cobra.Command{
	Use:   "request METHOD PATH",
	Short: "Send a request to the backend",
	Long: `Send a request to the backend API. The session token is attached as a
bearer token unless --no-auth is given.

Examples:
  bkctl request GET /api/users
  bkctl request POST /api/users --data '{"name":"bob"}'
  bkctl request GET /api/users --param page=2 --header "Accept: application/json"
  bkctl request GET /api/health --no-auth -o raw`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildRequest(args[0], args[1])
		if err != nil {
			return err
		}
		return sendAndPrint(cmd, req)
	},
}

// getCmd is a shorthand for an authenticated GET
var getCmd = &cobra.Command{
	Use:   "get PATH",
	Short: "Send an authenticated GET to the backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndPrint(cmd, &api.Request{
			Method:          http.MethodGet,
			URL:             args[0],
			WithCredentials: !getNoAuth,
		})
	},
}

func buildRequest(method, path string) (*api.Request, error) {
	header, err := parseHeaders(requestHeaders)
	if err != nil {
		return nil, err
	}
	params, err := parseParams(requestParams)
	if err != nil {
		return nil, err
	}

	req := &api.Request{
		Method:          strings.ToUpper(method),
		URL:             path,
		Params:          params,
		Header:          header,
		WithCredentials: !requestNoAuth,
	}
	if requestData != "" {
		req.Data = requestData
		if header.Get("Content-Type") == "" && json.Valid([]byte(requestData)) {
			header.Set("Content-Type", "application/json")
		}
	}
	return req, nil
}

func sendAndPrint(cmd *cobra.Command, req *api.Request) error {
	resp, err := current.client.Send(contextOf(cmd), req)
	if err != nil {
		// the body of an unexpected status is still worth showing
		if failure, ok := api.AsFailure(err); ok && failure.Kind() == api.KindOther && failure.Response != nil {
			_ = printOutput(os.Stdout, failure.Response.Body, current.output, isTerminal(os.Stdout))
		}
		return describeFailure(err)
	}
	return printOutput(os.Stdout, resp.Body, current.output, isTerminal(os.Stdout))
}

// describeFailure reports backend failures as categorized errors
func describeFailure(err error) error {
	if failure, ok := api.AsFailure(err); ok {
		return failure.AsError()
	}
	return err
}

// printOutput prints a response body in the specified format
func printOutput(w io.Writer, body []byte, format config.OutputFormat, highlight bool) error {
	if len(body) == 0 {
		return nil
	}
	switch format {
	case config.OutputRaw:
		_, err := w.Write(body)
		return err
	case config.OutputJSON, config.OutputPretty, "":
		var indented bytes.Buffer
		if err := json.Indent(&indented, body, "", "  "); err != nil {
			// not JSON, print as-is
			_, err := fmt.Fprintln(w, string(body))
			return err
		}
		if format == config.OutputJSON || !highlight {
			_, err := fmt.Fprintln(w, indented.String())
			return err
		}
		if err := quick.Highlight(w, indented.String(), "json", "terminal256", "monokai"); err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		_, err := fmt.Fprintln(w)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// parseHeaders accepts "Name: value" entries
func parseHeaders(entries []string) (http.Header, error) {
	header := http.Header{}
	for _, entry := range entries {
		name, value, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q: expected 'Name: value'", entry)
		}
		header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return header, nil
}

// parseParams accepts "key=value" entries
func parseParams(entries []string) (url.Values, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	params := url.Values{}
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q: expected 'key=value'", entry)
		}
		params.Add(key, value)
	}
	return params, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func init() {
	requestCmd.Flags().StringVarP(&requestData, "data", "d", "", "Request body")
	requestCmd.Flags().StringArrayVarP(&requestHeaders, "header", "H", nil, "Request header 'Name: value' (repeatable)")
	requestCmd.Flags().StringArrayVarP(&requestParams, "param", "p", nil, "Query parameter 'key=value' (repeatable)")
	requestCmd.Flags().BoolVar(&requestNoAuth, "no-auth", false, "Do not attach the session token")

	getCmd.Flags().BoolVar(&getNoAuth, "no-auth", false, "Do not attach the session token")

	rootCmd.AddCommand(requestCmd, getCmd)
}
