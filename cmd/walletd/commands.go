package main

import (
	"errors"

	"github.com/spf13/cobra"

	"kycpass/internal/identity/models"
	"kycpass/internal/platform/config"
	"kycpass/internal/session/handler"
	dErrors "kycpass/pkg/domain-errors"
)

// errNoCredentials is returned by verify when no id is given and the account
// holds nothing to verify.
var errNoCredentials = dErrors.New(dErrors.CodeNotFound, "account has no credentials to verify")

// oneShot runs fn against a session bound to --account. The account is
// settled (DID check, then credential fetch) before fn runs.
func oneShot(cfg config.Config, flags *globalFlags, account *string, fn func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(flags.apply(cfg), flags, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.bind(cmd.Context(), *account); err != nil {
			return err
		}
		return fn(cmd, a)
	}
}

func accountFlag(cmd *cobra.Command, account *string) {
	cmd.Flags().StringVar(account, "account", "", "wallet account address")
	_ = cmd.MarkFlagRequired("account")
}

func newDIDCommand(cfg config.Config, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "did",
		Short: "inspect or register the account's DID",
	}

	var checkAccount string
	check := &cobra.Command{
		Use:   "check",
		Short: "report whether the account has a DID",
		Args:  cobra.NoArgs,
		RunE: oneShot(cfg, flags, &checkAccount, func(cmd *cobra.Command, a *app) error {
			return printJSON(cmd.OutOrStdout(), handler.NewSnapshotResponse(a.session.Snapshot()))
		}),
	}
	accountFlag(check, &checkAccount)

	var createAccount string
	create := &cobra.Command{
		Use:   "create",
		Short: "register a DID for the account",
		Args:  cobra.NoArgs,
		RunE: oneShot(cfg, flags, &createAccount, func(cmd *cobra.Command, a *app) error {
			if err := a.session.CreateDID(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), handler.NewSnapshotResponse(a.session.Snapshot()))
		}),
	}
	accountFlag(create, &createAccount)

	cmd.AddCommand(check, create)
	return cmd
}

func newCredentialCommand(cfg config.Config, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "list or issue KYC credentials",
	}

	var listAccount string
	list := &cobra.Command{
		Use:   "list",
		Short: "list the account's credentials in issuance order",
		Args:  cobra.NoArgs,
		RunE: oneShot(cfg, flags, &listAccount, func(cmd *cobra.Command, a *app) error {
			return printJSON(cmd.OutOrStdout(), handler.NewCredentialListResponse(a.session.Snapshot().Credentials))
		}),
	}
	accountFlag(list, &listAccount)

	var (
		createAccount string
		data          models.CredentialData
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "issue a KYC credential for the account",
		Args:  cobra.NoArgs,
		RunE: oneShot(cfg, flags, &createAccount, func(cmd *cobra.Command, a *app) error {
			cred, err := a.session.CreateCredential(cmd.Context(), data)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), handler.NewCredentialResponse(*cred))
		}),
	}
	accountFlag(create, &createAccount)
	create.Flags().StringVar(&data.FullName, "full-name", "", "holder's full name")
	create.Flags().StringVar(&data.DateOfBirth, "date-of-birth", "", "holder's date of birth (YYYY-MM-DD)")
	create.Flags().StringVar(&data.NationalID, "national-id", "", "holder's national id number")
	create.Flags().StringVar(&data.Address, "address", "", "holder's postal address")

	cmd.AddCommand(list, create)
	return cmd
}

func newVerifyCommand(cfg config.Config, flags *globalFlags) *cobra.Command {
	var (
		account      string
		credentialID string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "verify a credential and report whether it grants access",
		Long: "verify asks the identity service whether a credential is valid and grants access. " +
			"Without --credential the most recently issued credential is used, by ledger id when anchored.",
		Args: cobra.NoArgs,
		RunE: oneShot(cfg, flags, &account, func(cmd *cobra.Command, a *app) error {
			id := models.CredentialID(credentialID)
			if id == "" {
				creds := a.session.Snapshot().Credentials
				if len(creds) == 0 {
					return errNoCredentials
				}
				id = creds[len(creds)-1].VerificationKey()
			}

			outcome, err := a.session.VerifyCredential(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), handler.NewVerifyResponse(outcome))
		}),
	}
	accountFlag(cmd, &account)
	cmd.Flags().StringVar(&credentialID, "credential", "", "credential id or ledger id to verify")
	return cmd
}

// exitCode maps command errors onto process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errNoCredentials):
		return 3
	case dErrors.HasCode(err, dErrors.CodeUnavailable), dErrors.HasCode(err, dErrors.CodeTimeout):
		return 4
	default:
		return 1
	}
}
