// Command admin-setup generates the credentials held in the gateway's
// security configuration secret: a bcrypt password hash, a TOTP secret with
// its enrolment QR code, and the complete JSON blob.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BradenHooton/adminguard/internal/auth"
	"github.com/BradenHooton/adminguard/internal/models"
	pkgauth "github.com/BradenHooton/adminguard/pkg/auth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "admin-setup",
		Short:        "Generate admin gateway credentials",
		SilenceUsage: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	root.AddCommand(newHashCmd(), newTOTPCmd(), newConfigCmd())
	return root
}

func newHashCmd() *cobra.Command {
	var cost int
	var skipPolicy bool

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash an admin password with bcrypt",
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := promptPasswordHash(cmd, cost, skipPolicy)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", pkgauth.BcryptCost, "bcrypt cost factor")
	cmd.Flags().BoolVar(&skipPolicy, "skip-policy", false, "Accept passwords that fail the strength policy")
	return cmd
}

type totpOptions struct {
	issuer  string
	account string
	qrPath  string
}

func (o *totpOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.issuer, "issuer", "AdminGuard", "Issuer shown in the authenticator app")
	cmd.Flags().StringVar(&o.account, "account", "admin", "Account name shown in the authenticator app")
	cmd.Flags().StringVar(&o.qrPath, "qr", "", "Write the enrolment QR code PNG to this path")
}

func (o *totpOptions) enroll(cmd *cobra.Command) (*auth.MFAEnrollment, error) {
	enrollment, err := auth.GenerateSecretWithQR(o.issuer, o.account)
	if err != nil {
		return nil, err
	}
	if o.qrPath != "" {
		if err := os.WriteFile(o.qrPath, enrollment.QRCode, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write QR code: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "QR code written to %s\n", o.qrPath)
	}
	return enrollment, nil
}

func newTOTPCmd() *cobra.Command {
	var opts totpOptions

	cmd := &cobra.Command{
		Use:   "totp",
		Short: "Generate a TOTP secret and enrolment QR code",
		RunE: func(cmd *cobra.Command, args []string) error {
			enrollment, err := opts.enroll(cmd)
			if err != nil {
				return err
			}
			code, err := auth.GenerateMFAToken(enrollment.Secret, time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "secret: %s\n", enrollment.Secret)
			fmt.Fprintf(out, "url:    %s\n", enrollment.URL)
			fmt.Fprintf(out, "code:   %s (current, to check the authenticator)\n", code)
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

type configOptions struct {
	totp           totpOptions
	cost           int
	skipPolicy     bool
	username       string
	mfa            bool
	allowedIPs     []string
	maxAttempts    int
	lockoutMinutes int
	sessionMinutes int
}

func newConfigCmd() *cobra.Command {
	var opts configOptions

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate a complete security configuration JSON blob",
		Long: `Prompts for the admin password and prints the security configuration
JSON ready to be stored in AWS Secrets Manager.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildSecurityConfig(cmd, &opts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}
	opts.totp.bind(cmd)
	cmd.Flags().IntVar(&opts.cost, "cost", pkgauth.BcryptCost, "bcrypt cost factor")
	cmd.Flags().BoolVar(&opts.skipPolicy, "skip-policy", false, "Accept passwords that fail the strength policy")
	cmd.Flags().StringVar(&opts.username, "username", "", "Admin username; empty disables the username check")
	cmd.Flags().BoolVar(&opts.mfa, "mfa", true, "Require a TOTP code after the password")
	cmd.Flags().StringSliceVar(&opts.allowedIPs, "allowed-ip", nil, "Allowed client IPv4 address or CIDR (repeatable); none allows all")
	cmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", 5, "Failed logins before lockout")
	cmd.Flags().IntVar(&opts.lockoutMinutes, "lockout-minutes", 15, "Lockout window in minutes")
	cmd.Flags().IntVar(&opts.sessionMinutes, "session-minutes", 30, "Session lifetime in minutes")
	return cmd
}

func buildSecurityConfig(cmd *cobra.Command, opts *configOptions) (*models.SecurityConfig, error) {
	if invalid := auth.InvalidAllowlistEntries(opts.allowedIPs); len(invalid) > 0 {
		return nil, fmt.Errorf("malformed allowlist entries: %s", strings.Join(invalid, ", "))
	}

	hash, err := promptPasswordHash(cmd, opts.cost, opts.skipPolicy)
	if err != nil {
		return nil, err
	}

	cfg := &models.SecurityConfig{
		AdminUsername:          opts.username,
		AdminPasswordHash:      hash,
		MFAEnabled:             opts.mfa,
		AllowedIPs:             opts.allowedIPs,
		MaxLoginAttempts:       opts.maxAttempts,
		LockoutDurationMinutes: opts.lockoutMinutes,
		SessionTimeoutMinutes:  opts.sessionMinutes,
	}
	if cfg.AllowedIPs == nil {
		cfg.AllowedIPs = []string{}
	}

	if opts.mfa {
		enrollment, err := opts.totp.enroll(cmd)
		if err != nil {
			return nil, err
		}
		cfg.MFASecretKey = enrollment.Secret
		fmt.Fprintf(cmd.ErrOrStderr(), "otpauth URL: %s\n", enrollment.URL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid security configuration: %w", err)
	}
	return cfg, nil
}

func promptPasswordHash(cmd *cobra.Command, cost int, skipPolicy bool) (string, error) {
	password, err := readPassword(cmd, "Admin password: ")
	if err != nil {
		return "", err
	}
	confirm, err := readPassword(cmd, "Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		var pve *pkgauth.PasswordValidationError
		if !errors.As(err, &pve) {
			return "", err
		}
		if !skipPolicy {
			return "", fmt.Errorf("password rejected: %s", strings.Join(pve.Errors, "; "))
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: password does not meet the strength policy")
	}

	return pkgauth.HashPasswordWithCost(password, cost)
}

// readPassword prompts without echo on a terminal and reads a line otherwise
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}

	reader, ok := in.(*bufio.Reader)
	if !ok {
		reader = bufio.NewReader(in)
		cmd.SetIn(reader)
	}
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
