package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"
)

// PasswordPrompt reads a password interactively. It returns ok=false when no
// terminal is attached.
type PasswordPrompt func(prompt string) (password string, ok bool, err error)

// TerminalPrompt prompts on stderr and reads from stdin without echo
func TerminalPrompt(out io.Writer) PasswordPrompt {
	return func(prompt string) (string, bool, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return "", false, nil
		}
		fmt.Fprint(out, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", false, fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), true, nil
	}
}

// ResolvePassword fills Database.Password when it is empty, first from the OS
// keyring and then from prompt. A DSN that already carries a password is left
// alone by the MySQL client, so nothing is looked up for it here.
func (c *Config) ResolvePassword(prompt PasswordPrompt) error {
	if c.Database.Password != "" {
		return nil
	}

	if c.Database.KeyringService != "" && c.Database.Username != "" {
		secret, err := keyring.Get(c.Database.KeyringService, c.Database.Username)
		switch {
		case err == nil:
			c.Database.Password = secret
			return nil
		case errors.Is(err, keyring.ErrNotFound):
		default:
			return fmt.Errorf("failed to read password from keyring: %w", err)
		}
	}

	if prompt == nil || c.Database.DSN != "" {
		return nil
	}
	password, ok, err := prompt(fmt.Sprintf("MySQL password for %s: ", c.Database.Username))
	if err != nil {
		return err
	}
	if ok {
		c.Database.Password = password
	}
	return nil
}

// StorePassword saves the password in the OS keyring
func (c *Config) StorePassword(password string) error {
	if c.Database.KeyringService == "" || c.Database.Username == "" {
		return errors.New("database.keyring_service and database.username are required to store a password")
	}
	if err := keyring.Set(c.Database.KeyringService, c.Database.Username, password); err != nil {
		return fmt.Errorf("failed to store password in keyring: %w", err)
	}
	return nil
}
