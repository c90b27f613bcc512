package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vulnetix/bkctl/internal/api"
	"github.com/vulnetix/bkctl/internal/auth"
)

var (
	authUsername string
	authPassword string
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the backend session",
	Long: `Manage the session token used for authenticated backend calls.

Examples:
  # Interactive login
  bkctl auth login

  # Non-interactive login
  bkctl auth login --username bob --password secret --store project

  # Check session status
  bkctl auth status

  # Remove the stored session
  bkctl auth logout`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the backend",
	Long: `Exchange a username and password for an access token and store it.
Interactive by default when run in a terminal.

Non-interactive flags:
  --username NAME   Backend user
  --password PASS   Backend password`,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, password := authUsername, authPassword
		if username == "" || password == "" {
			if !isInteractive() {
				return fmt.Errorf("--username and --password are required in non-interactive mode")
			}
			var err error
			username, password, err = promptLogin(newPrompter(os.Stdin, os.Stdout), username)
			if err != nil {
				return err
			}
		}

		session, err := login(contextOf(cmd), current, username, password)
		if err != nil {
			return err
		}
		fmt.Println("Login successful")
		printSession(os.Stdout, session)
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current session state",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, session := auth.Status(contextOf(cmd), current.store)
		fmt.Println(status)
		if session != nil {
			printSession(os.Stdout, session)
		}
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.store.Clear(contextOf(cmd)); err != nil {
			return fmt.Errorf("failed to remove session: %w", err)
		}
		fmt.Println("Session removed successfully")
		return nil
	},
}

// login runs the password grant and stores the resulting session
func login(ctx context.Context, a *app, username, password string) (*auth.Session, error) {
	resp, err := a.client.Login(ctx, api.LoginData{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", describeFailure(err))
	}
	session, err := api.DecodeSession(resp)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if err := a.store.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	a.logger.Info("session stored", "token_type", session.TokenType)
	return session, nil
}

func printSession(w io.Writer, session *auth.Session) {
	token := session.Token()
	fmt.Fprintf(w, "  Token: %s\n", session.MaskedToken())
	if token.TokenType != "" {
		fmt.Fprintf(w, "  Type: %s\n", token.TokenType)
	}
	if !token.Expiry.IsZero() {
		fmt.Fprintf(w, "  Expires: %s\n", token.Expiry.Local().Format("2006-01-02 15:04:05"))
	}
	if session.Scope != "" {
		fmt.Fprintf(w, "  Scope: %s\n", session.Scope)
	}
}

// prompter reads answers line by line; secrets are read without echo when
// the input is a terminal
type prompter struct {
	reader   *bufio.Reader
	out      io.Writer
	terminal *os.File
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{reader: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.terminal = f
	}
	return p
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	answer, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || answer == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

func (p *prompter) secret(label string) (string, error) {
	if p.terminal == nil {
		return p.line(label)
	}
	fmt.Fprint(p.out, label)
	secret, err := term.ReadPassword(int(p.terminal.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(secret), nil
}

func promptLogin(p *prompter, username string) (string, string, error) {
	if username == "" {
		var err error
		if username, err = p.line("Username: "); err != nil {
			return "", "", err
		}
		if username == "" {
			return "", "", fmt.Errorf("username cannot be empty")
		}
	}
	password, err := p.secret("Password: ")
	if err != nil {
		return "", "", err
	}
	return username, password, nil
}

func isInteractive() bool {
	return isTerminal(os.Stdin)
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	authLoginCmd.Flags().StringVar(&authUsername, "username", "", "Backend username")
	authLoginCmd.Flags().StringVar(&authPassword, "password", "", "Backend password")

	authCmd.AddCommand(authLoginCmd, authStatusCmd, authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}
