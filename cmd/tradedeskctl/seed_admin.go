package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/tradedesk-backend/internal/activitylog"
	"github.com/angelmondragon/tradedesk-backend/internal/users"
	"github.com/angelmondragon/tradedesk-backend/pkg/enums"
	"github.com/angelmondragon/tradedesk-backend/pkg/logger"
	"github.com/angelmondragon/tradedesk-backend/pkg/security"
)

const tempPasswordLength = 16

func newSeedAdminCmd(base *logger.Logger) *cobra.Command {
	var (
		input users.CreateUserInput
		force bool
	)
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first admin account",
		Long: `seed-admin creates an admin user so the dashboard can be logged into on a
fresh database. It refuses to run when an active admin already exists unless
--force is given. Without --password a temporary one is generated and printed
once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, base)
			if err != nil {
				return err
			}
			defer rt.Close()

			conn := rt.db.DB()
			repo := users.NewRepository(conn)
			if !force {
				admins, err := repo.CountActiveByRole(ctx, enums.UserRoleAdmin)
				if err != nil {
					return fmt.Errorf("count admins: %w", err)
				}
				if admins > 0 {
					return fmt.Errorf("%d active admin(s) already exist; use --force to add another", admins)
				}
			}

			activity, err := activitylog.NewService(activitylog.NewRepository(conn), rt.logg)
			if err != nil {
				return err
			}
			svc, err := users.NewService(users.ServiceParams{
				Repo:     repo,
				DB:       rt.db,
				Activity: activity,
				Password: rt.cfg.Password,
			})
			if err != nil {
				return err
			}

			generated := input.Password == ""
			if generated {
				if input.Password, err = security.GenerateTempPassword(tempPasswordLength); err != nil {
					return err
				}
			}
			input.Role = enums.UserRoleAdmin
			user, err := svc.Create(ctx, activitylog.Actor{Name: "tradedeskctl"}, input)
			if err != nil {
				return err
			}

			logCtx := rt.logg.WithFields(ctx, map[string]any{"user_id": user.ID.String(), "email": user.Email})
			rt.logg.Info(logCtx, "admin seeded")
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s <%s>\n", user.Name, user.Email)
			if generated {
				fmt.Fprintf(cmd.OutOrStdout(), "temporary password: %s\n", input.Password)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&input.Password, "password", "", "admin password (generated when empty)")
	cmd.Flags().StringVar(&input.Name, "name", "Admin", "display name")
	cmd.Flags().BoolVar(&force, "force", false, "create even if an admin exists")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
