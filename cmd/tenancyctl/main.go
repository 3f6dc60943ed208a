package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/service"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/store"
)

var (
	dbHost    string
	dbPort    int
	dbUser    string
	dbPass    string
	dbName    string
	redisAddr string
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "tenancyctl",
		Short:         "Operate the tenancy lifecycle engine from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbHost, "db-host", envOr("DB_HOST", "localhost"), "Database host")
	root.PersistentFlags().IntVar(&dbPort, "db-port", 5432, "Database port")
	root.PersistentFlags().StringVar(&dbUser, "db-user", envOr("DB_USER", "admin"), "Database user")
	root.PersistentFlags().StringVar(&dbPass, "db-pass", envOr("DB_PASS", ""), "Database password")
	root.PersistentFlags().StringVar(&dbName, "db-name", envOr("DB_NAME", "tenancy_registry"), "Database name")
	root.PersistentFlags().StringVar(&redisAddr, "redis-addr", envOr("REDIS_ADDR", ""), "Redis address (empty disables cache)")

	root.AddCommand(attachCmd(), renewCmd(), reconcileCmd(), checkCmd())

	if err := root.Execute(); err != nil {
		var se *service.Error
		if errors.As(err, &se) {
			fmt.Fprintln(os.Stderr, se.UserMessage())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func openEngine() (*service.Engine, *store.Store, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPass, dbName)
	st, err := store.New(dsn, redisAddr)
	if err != nil {
		return nil, nil, err
	}
	return service.NewEngine(st, nil), st, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func attachCmd() *cobra.Command {
	var (
		actor, property, application string
		name, phone, email           string
		start, end, frequency        string
		amount                       int64
		deposit, serviceCharge       int64
	)
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach a tenant to a property, creating the lease and assignment",
		RunE: func(cmd *cobra.Command, args []string) error {
			actorID, err := uuid.Parse(actor)
			if err != nil {
				return fmt.Errorf("invalid --actor: %w", err)
			}
			propertyID, err := uuid.Parse(property)
			if err != nil {
				return fmt.Errorf("invalid --property: %w", err)
			}

			in := service.AttachInput{
				ActorID:    actorID,
				PropertyID: propertyID,
				Terms: service.LeaseTerms{
					StartDate:     start,
					EndDate:       end,
					Amount:        amount,
					Frequency:     frequency,
					Deposit:       deposit,
					ServiceCharge: serviceCharge,
				},
			}
			if application != "" {
				appID, err := uuid.Parse(application)
				if err != nil {
					return fmt.Errorf("invalid --application: %w", err)
				}
				in.ApplicationID = &appID
			} else {
				in.Profile = &service.TenantProfile{FullName: name, Phone: phone, Email: email}
			}

			engine, st, err := openEngine()
			if err != nil {
				return err
			}
			defer st.Close()
			defer engine.Close()

			res, err := engine.Attach(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "Acting administrator account id (must own the property)")
	cmd.Flags().StringVar(&property, "property", "", "Target property id")
	cmd.Flags().StringVar(&application, "application", "", "Pending application id (alternative to profile flags)")
	cmd.Flags().StringVar(&name, "name", "", "Tenant full name")
	cmd.Flags().StringVar(&phone, "phone", "", "Tenant phone")
	cmd.Flags().StringVar(&email, "email", "", "Tenant email")
	cmd.Flags().StringVar(&start, "start", "", "Lease start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Lease end date (YYYY-MM-DD, optional)")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Rent amount in minor units")
	cmd.Flags().StringVar(&frequency, "frequency", "monthly", "Payment frequency")
	cmd.Flags().Int64Var(&deposit, "deposit", 0, "Deposit in minor units")
	cmd.Flags().Int64Var(&serviceCharge, "service-charge", 0, "Service charge in minor units")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("property")
	cmd.MarkFlagRequired("start")
	return cmd
}

func renewCmd() *cobra.Command {
	var (
		assignment            string
		start, end, frequency string
		amount                int64
	)
	cmd := &cobra.Command{
		Use:   "renew",
		Short: "Renew the active lease behind an assignment with new terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			assignmentID, err := uuid.Parse(assignment)
			if err != nil {
				return fmt.Errorf("invalid --assignment: %w", err)
			}

			engine, st, err := openEngine()
			if err != nil {
				return err
			}
			defer st.Close()
			defer engine.Close()

			lease, err := engine.Renew(cmd.Context(), assignmentID, service.RenewInput{
				StartDate: start,
				EndDate:   end,
				Amount:    amount,
				Frequency: frequency,
			})
			if err != nil {
				return err
			}
			return printJSON(lease)
		},
	}
	cmd.Flags().StringVar(&assignment, "assignment", "", "Assignment id")
	cmd.Flags().StringVar(&start, "start", "", "New start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "New end date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&amount, "amount", 0, "New rent amount in minor units")
	cmd.Flags().StringVar(&frequency, "frequency", "monthly", "New payment frequency")
	cmd.MarkFlagRequired("assignment")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run the read/repair pass over the whole store",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, st, err := openEngine()
			if err != nil {
				return err
			}
			defer st.Close()
			defer engine.Close()

			report, err := engine.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the read-only consistency scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, st, err := openEngine()
			if err != nil {
				return err
			}
			defer st.Close()
			defer engine.Close()

			report, err := engine.CheckConsistency(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
