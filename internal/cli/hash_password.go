package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/angularhub/hub/internal/auth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newHashPasswordCommand(opts *rootOptions) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Create the admin credentials file",
		Long: `Prompt for a username and password and write them, Argon2id hashed, to the
admin auth file (admin.authfile, default ./auth.secret). The file protects
POST /api/admin/reload with Basic Auth.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

			username, err := prompt.line("Enter username: ")
			if err != nil {
				return fmt.Errorf("error reading username: %w", err)
			}
			if username == "" {
				return errors.New("username cannot be empty")
			}

			password, err := prompt.secret("Enter password:   ")
			if err != nil {
				return fmt.Errorf("error reading password: %w", err)
			}
			confirm, err := prompt.secret("Confirm password: ")
			if err != nil {
				return fmt.Errorf("error reading password confirmation: %w", err)
			}
			if password == "" {
				return errors.New("password cannot be empty")
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}

			path := opts.cfg.Admin.AuthFile
			err = auth.CreateAuthFile(path, username, password, overwrite)
			if errors.Is(err, auth.ErrAuthFileExists) {
				answer, promptErr := prompt.line(fmt.Sprintf("Auth file already exists: %s\nOverwrite? (y/N): ", path))
				if promptErr != nil {
					return promptErr
				}
				if answer = strings.ToLower(answer); answer != "y" && answer != "yes" {
					return errors.New("aborted")
				}
				err = auth.CreateAuthFile(path, username, password, true)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Auth file created: %s (mode: 0400 read-only)\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing auth file without asking")
	return cmd
}

// prompter reads answers from in. Secrets are read without echo when in is a terminal.
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, reader: bufio.NewReader(in), out: out}
}

func (p *prompter) line(question string) (string, error) {
	fmt.Fprint(p.out, question)
	answer, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && answer != "") {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (p *prompter) secret(question string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, question)
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(password), nil
	}
	return p.line(question)
}
