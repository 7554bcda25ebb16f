package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	pkgauth "github.com/BradenHooton/loginguard/pkg/auth"
)

var hashCost int

// hashPasswordCmd produces an ADMIN_PASSWORD_HASH for local mode
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Prompt for a password and print its bcrypt hash",
	Long:  "Prompt for a password and print a bcrypt hash suitable for ADMIN_PASSWORD_HASH",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var password, confirm string
		if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		if err := survey.AskOne(&survey.Password{Message: "Confirm password:"}, &confirm); err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		if weak := warnIfWeak(cmd.ErrOrStderr(), password); weak {
			proceed := false
			if err := survey.AskOne(&survey.Confirm{Message: "Use it anyway?", Default: false}, &proceed); err != nil {
				return err
			}
			if !proceed {
				return fmt.Errorf("aborted")
			}
		}

		hash, err := pkgauth.HashPasswordWithCost(password, hashCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", pkgauth.BcryptCost, "bcrypt cost")
}

// warnIfWeak prints the strength problems for password and reports whether there were any
func warnIfWeak(w io.Writer, password string) bool {
	err := pkgauth.CheckPasswordStrength(password)
	if err == nil {
		return false
	}

	yellow := color.New(color.FgYellow)
	yellow.Fprintln(w, "⚠ weak password:")

	var weakness *pkgauth.PasswordWeaknessError
	if errors.As(err, &weakness) {
		for _, reason := range weakness.Reasons {
			yellow.Fprintf(w, "  - %s\n", reason)
		}
	} else {
		yellow.Fprintf(w, "  - %s\n", err)
	}
	return true
}
