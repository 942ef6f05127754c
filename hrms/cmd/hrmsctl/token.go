package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	hrms "tfshrms.cloud/hrms/hrms/core"
	"tfshrms.cloud/hrms/hrms/model"
	"tfshrms.cloud/hrms/security"
)

var (
	tokenUserID int
	tokenTTL    time.Duration
)

func init() {
	createTokenCmd.Flags().IntVar(&tokenUserID, "user-id", 0, "id of the user the token is issued for")
	createTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	_ = createTokenCmd.MarkFlagRequired("user-id")
	rootCmd.AddCommand(createTokenCmd)
}

var createTokenCmd = &cobra.Command{
	Use:   "create-token",
	Short: "Print an access token for an active user",
	RunE:  runCreateToken,
}

func runCreateToken(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	db := e.dm.DB(ctx)
	role, err := hrms.ResolveRole(ctx, db, tokenUserID)
	if err != nil {
		return err
	}
	var user model.User
	if err := db.Take(&user, tokenUserID).Error; err != nil {
		return err
	}
	secret, err := e.cfg.JWTSecret()
	if err != nil {
		return err
	}
	token, err := security.SignIdentityToken(&security.HrmsIdentity{
		Id:       user.ID,
		UserName: user.Name,
		Email:    user.Email,
		Role:     role,
	}, secret, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
