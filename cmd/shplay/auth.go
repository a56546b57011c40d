package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"example.com/stuff-happens/internal/client"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginUser     string
	loginRegister bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and remember the access token",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved access token",
	RunE:  runLogout,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUser, "username", "u", "", "username (prompted when empty)")
	loginCmd.Flags().BoolVar(&loginRegister, "register", false, "create the account first")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	username := loginUser
	if username == "" {
		fmt.Fprint(out, "Username: ")
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		username = strings.TrimSpace(line)
	}
	password, err := readPassword(out, in)
	if err != nil {
		return err
	}

	creds, _ := loadCredentials()
	c := client.New(resolveServer(creds), "")

	if loginRegister {
		if err := c.Register(ctx, username, password); err != nil {
			return fmt.Errorf("register: %w", err)
		}
	}
	resp, err := c.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if err := saveCredentials(credentials{Server: c.BaseURL(), Username: resp.Username, Token: resp.AccessToken}); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	fmt.Fprintf(out, "Logged in as %s\n", resp.Username)
	return nil
}

func readPassword(out io.Writer, in *bufio.Reader) (string, error) {
	fmt.Fprint(out, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		return string(b), err
	}
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	if c, err := authedClient(); err == nil {
		_ = c.Logout(ctx)
	}
	if err := removeCredentials(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}
