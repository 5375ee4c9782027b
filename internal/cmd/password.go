package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/harrison/svncrawl/internal/config"
	"github.com/harrison/svncrawl/internal/svn"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword prompts on w and reads a password from the terminal without
// echo. Tests replace it.
var readPassword = func(w io.Writer, username string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--ask-password needs an interactive terminal")
	}

	if username != "" {
		fmt.Fprintf(w, "Password for '%s': ", username)
	} else {
		fmt.Fprint(w, "Password: ")
	}
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(secret), nil
}

// credentials returns the repository credentials for cfg, prompting for the
// password when --ask-password is set. Passwords never come from config.
func credentials(cmd *cobra.Command, cfg *config.Config) (svn.Credentials, error) {
	creds := svn.Credentials{Username: cfg.Username}

	ask, _ := cmd.Flags().GetBool("ask-password")
	if !ask {
		return creds, nil
	}

	password, err := readPassword(cmd.ErrOrStderr(), cfg.Username)
	if err != nil {
		return svn.Credentials{}, err
	}
	creds.Password = password
	return creds, nil
}
