package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alarmdecoder/webconsole/internal/audit"
	"github.com/alarmdecoder/webconsole/internal/db"
	"github.com/alarmdecoder/webconsole/internal/rbac"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	userEmail         string
	userAdmin         bool
	userCanUpdate     bool
	userPasswordStdin bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage console users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user",
	Example: `  webconsole user add alice --admin
  echo "$PASS" | webconsole user add installer --can-update --password-stdin`,
	Args: cobra.ExactArgs(1),
	RunE: runUserAdd,
}

func init() {
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "Email address (default: <username>@alarmdecoder.local)")
	userAddCmd.Flags().BoolVar(&userAdmin, "admin", false, "Grant admin privileges")
	userAddCmd.Flags().BoolVar(&userCanUpdate, "can-update", false, "Allow the user to check for and apply updates")
	userAddCmd.Flags().BoolVar(&userPasswordStdin, "password-stdin", false, "Read the password from stdin")

	userCmd.AddCommand(userAddCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]
	email := userEmail
	if email == "" {
		email = username + "@alarmdecoder.local"
	}

	password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), userPasswordStdin)
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	gdb, err := db.New(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}

	enforcer, err := rbac.NewEnforcer(gdb, log)
	if err != nil {
		return err
	}
	user, err := db.CreateUser(gdb, username, email, password)
	if err != nil {
		return err
	}

	switch {
	case userAdmin:
		err = enforcer.MakeAdmin(user.ID)
	case userCanUpdate:
		err = enforcer.GrantUpdate(user.ID)
	}
	if err != nil {
		return fmt.Errorf("user created but granting permissions failed: %w", err)
	}

	if err := audit.LogAction(gdb, uuid.Nil, audit.ActionCreateUser, audit.Resource("user", user.ID.String()), map[string]interface{}{
		"username":   user.Username,
		"is_admin":   userAdmin,
		"can_update": userCanUpdate,
		"source":     "cli",
	}); err != nil {
		log.Warn("failed to write audit entry", "error", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Username, user.ID)
	return nil
}

// readPassword reads from stdin when fromStdin is set, otherwise prompts
// twice on the terminal without echo.
func readPassword(in io.Reader, prompt io.Writer, fromStdin bool) (string, error) {
	if fromStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return "", errors.New("password must not be empty")
		}
		return password, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal, use --password-stdin")
	}

	fmt.Fprint(prompt, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprint(prompt, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if len(first) == 0 {
		return "", errors.New("password must not be empty")
	}
	return string(first), nil
}
