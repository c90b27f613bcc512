package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vulnetix/bkctl/internal/api"
	"github.com/vulnetix/bkctl/internal/auth"
)

// shellCmd starts an interactive session bound to a route
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive session",
	Long: `Start an interactive session. The prompt shows the current route; 'get'
without a path fetches it. When the backend becomes unreachable the session
is cleared and the route goes back to /.

Type 'help' inside the shell for the list of commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(contextOf(cmd), current, os.Stdin, os.Stdout)
	},
}

const shellHelp = `Commands:
  cd PATH      change the current route
  back         return to the previous route
  pwd          print the current route
  get [PATH]   authenticated GET of PATH, or of the current route
  login [USER] log in and store the session
  logout       remove the stored session
  status       show the session state
  help         show this help
  exit         leave the shell`

// runShell reads commands from in until exit or end of input
func runShell(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	p := newPrompter(in, out)
	fmt.Fprintf(out, "bkctl v%s connected to %s\n", version, a.cfg.BackendURL)

	for {
		line, err := p.line(fmt.Sprintf("bkctl:%s> ", a.history.Location()))
		if err != nil {
			fmt.Fprintln(out)
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		command, args := fields[0], fields[1:]
		switch command {
		case "exit", "quit":
			return nil
		case "help":
			fmt.Fprintln(out, shellHelp)
		case "pwd":
			fmt.Fprintln(out, a.history.Location())
		case "cd":
			target := "/"
			if len(args) > 0 {
				target = args[0]
			}
			a.history.Push(target)
		case "back":
			a.history.Back()
		case "get":
			target := a.history.Location()
			if len(args) > 0 {
				target = a.history.Resolve(args[0])
			}
			shellGet(ctx, a, out, target)
		case "login":
			username := ""
			if len(args) > 0 {
				username = args[0]
			}
			user, password, err := promptLogin(p, username)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			if _, err := login(ctx, a, user, password); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "Login successful")
		case "logout":
			if err := a.store.Clear(ctx); err != nil {
				fmt.Fprintf(out, "Error: failed to remove session: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "Session removed successfully")
		case "status":
			status, session := auth.Status(ctx, a.store)
			fmt.Fprintln(out, status)
			if session != nil {
				printSession(out, session)
			}
		default:
			fmt.Fprintf(out, "Unknown command %q, type 'help' for the list of commands\n", command)
		}
	}
}

// shellGet prints the body of a GET; failures were already notified by the interceptor
func shellGet(ctx context.Context, a *app, out io.Writer, target string) {
	resp, err := a.client.Send(ctx, &api.Request{Method: http.MethodGet, URL: target, WithCredentials: true})
	if err != nil {
		if failure, ok := api.AsFailure(err); !ok || failure.Kind() == api.KindOther {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		return
	}
	if err := printOutput(out, resp.Body, a.output, false); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	}
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
