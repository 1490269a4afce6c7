package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/spf13/cobra"

	"reorc-cli/internal/config"
	"reorc-cli/internal/transport"
)

// auth command: token validation and login against the MCP server.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage server authentication",
}

var authValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the stored access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ValidateToken")
		if err != nil {
			return err
		}
		defer a.Close()

		remote, err := a.Remote()
		if err != nil {
			return emit(a, nil, err)
		}

		result, err := remote.API.ValidateToken(cmd.Context())
		if err != nil {
			return emit(a, nil, err)
		}
		return emit(a, result.Raw, nil)
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store a fresh access token",
	Long: "Exchange credentials for a fresh access token and write it back " +
		"into the server configuration. Credentials come from flags, then the " +
		"configured defaults, then an interactive prompt.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		tenant, _ := cmd.Flags().GetString("tenant")

		a, err := newApp("Login")
		if err != nil {
			return err
		}
		defer a.Close()
		a.Persist("email=" + email)

		remote, err := a.Remote()
		if err != nil {
			return emit(a, nil, err)
		}

		creds, err := resolveCredentials(remote.Auth.Credentials(), email, password, tenant)
		if err != nil {
			return emit(a, nil, err)
		}

		result, err := remote.API.Login(cmd.Context(), creds)
		if err != nil {
			return emit(a, nil, err)
		}

		if err := remote.Auth.UpdateToken(result.AccessToken); err != nil {
			return emit(a, nil, err)
		}

		return emit(a, map[string]string{
			"status":  "success",
			"message": "Login successful, access token updated",
		}, nil)
	},
}

// resolveCredentials merges flag values over configured defaults and
// prompts interactively for anything still missing.
func resolveCredentials(defaults config.Credentials, email, password, tenant string) (transport.LoginRequest, error) {
	if email == "" {
		email = defaults.Email
	}
	if password == "" {
		password = defaults.Password
	}
	if tenant == "" {
		tenant = defaults.TenantDomain
	}

	reader := bufio.NewReader(os.Stdin)

	if email == "" {
		fmt.Print("Email: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return transport.LoginRequest{}, fmt.Errorf("reading email: %w", err)
		}
		email = strings.TrimSpace(line)
	}

	if tenant == "" {
		fmt.Print("Tenant domain: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return transport.LoginRequest{}, fmt.Errorf("reading tenant domain: %w", err)
		}
		tenant = strings.TrimSpace(line)
	}

	if password == "" {
		fmt.Print("Password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return transport.LoginRequest{}, fmt.Errorf("reading password: %w", err)
		}
		password = string(raw)
	}

	return transport.LoginRequest{
		Email:        email,
		Password:     password,
		TenantDomain: tenant,
	}, nil
}

func init() {
	authCmd.AddCommand(authValidateCmd)
	authCmd.AddCommand(authLoginCmd)
	authLoginCmd.Flags().String("email", "", "Login email")
	authLoginCmd.Flags().String("password", "", "Login password (prompted when omitted)")
	authLoginCmd.Flags().String("tenant", "", "Tenant domain")
	rootCmd.AddCommand(authCmd)
}
