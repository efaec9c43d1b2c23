/*
main.go - leaved entry point

PURPOSE:
  Command-line front door for the leave engine. Two subcommands:

    leaved serve   Run the HTTP API server
    leaved seed    Populate a database with a demo organization

CONFIGURATION:
  Flags win over environment variables; a .env file in the working
  directory is loaded first when present.

    --port        PORT          HTTP port (default 8080)
    --db          DB_PATH       SQLite path (default leave.db, ":memory:" works)
    --redis       REDIS_ADDR    Redis address for event publishing (optional)
    --jwt-secret  JWT_SECRET    HMAC secret for bearer tokens (required by serve)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM the server stops accepting connections, drains
  in-flight requests for up to 30s, then closes the store and sink.

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
  - factory/catalog.go: The catalog the seed command installs
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/notify"
	"github.com/warp/leave-engine/store/sqlite"
)

var (
	flagPort      int
	flagDBPath    string
	flagRedisAddr string
	flagJWTSecret string
	flagYear      int
)

func main() {
	root := &cobra.Command{
		Use:           "leaved",
		Short:         "Multi-tenant leave request engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagDBPath, "db", envOr("DB_PATH", "leave.db"), "SQLite database path")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE:  runServe,
	}
	serve.Flags().IntVar(&flagPort, "port", envOrInt("PORT", 8080), "HTTP server port")
	serve.Flags().StringVar(&flagRedisAddr, "redis", os.Getenv("REDIS_ADDR"), "Redis address for event publishing (empty disables)")
	serve.Flags().StringVar(&flagJWTSecret, "jwt-secret", os.Getenv("JWT_SECRET"), "HMAC secret for bearer tokens")

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with a demo organization",
		RunE:  runSeed,
	}

	provision := &cobra.Command{
		Use:   "provision <org-id>",
		Short: "Create the balance rows for a new entitlement year",
		Args:  cobra.ExactArgs(1),
		RunE:  runProvision,
	}
	provision.Flags().IntVar(&flagYear, "year", calendar.Today().Year+1, "entitlement year to provision")

	root.AddCommand(serve, seed, provision)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "leaved:", err)
		os.Exit(1)
	}
}

func init() {
	// Missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

// =============================================================================
// SERVE
// =============================================================================

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if flagJWTSecret == "" {
		return fmt.Errorf("a JWT secret is required (--jwt-secret or JWT_SECRET)")
	}

	store, err := sqlite.New(flagDBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	var sink leave.NotificationSink = leave.NopSink{}
	if flagRedisAddr != "" {
		redisSink, err := notify.NewRedisSink(cmd.Context(), flagRedisAddr, logger)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisSink.Close()
		sink = redisSink
		logger.Info("event publishing enabled", zap.String("redis", flagRedisAddr))
	}

	ctrl := leave.NewController(leave.Stores{
		Organizations: store,
		Memberships:   store,
		Catalog:       store,
		Balances:      store,
		Requests:      store,
		Holidays:      store,
	}, sink)

	handler := api.NewHandler(ctrl, store, logger)
	auth := &api.Authenticator{
		Secret:      []byte(flagJWTSecret),
		Memberships: store,
		Logger:      logger,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", flagPort),
		Handler:      api.NewRouter(handler, auth),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", flagPort),
			zap.String("db", flagDBPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// =============================================================================
// SEED
// =============================================================================

// runSeed installs a small demo tenant: one organization with the default
// catalog, a team with a manager, balances for the current year, and the
// fixed Polish national holidays.
func runSeed(cmd *cobra.Command, _ []string) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := sqlite.New(flagDBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	const orgID = "demo"

	err = store.SaveOrganization(ctx, leave.Organization{
		ID:                    orgID,
		Name:                  "Demo Sp. z o.o.",
		Country:               "PL",
		WorkWeek:              calendar.DefaultWorkWeek(),
		ExcludePublicHolidays: true,
		CreatedAt:             time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	memberships := []leave.Membership{
		{UserID: "anna", OrgID: orgID, Name: "Anna Kowalska", Role: leave.RoleAdmin, IsActive: true, IsDefault: true},
		{UserID: "piotr", OrgID: orgID, Name: "Piotr Nowak", Role: leave.RoleManager, TeamID: "platform", IsActive: true, IsDefault: true},
		{UserID: "marta", OrgID: orgID, Name: "Marta Wisniewska", Role: leave.RoleEmployee, TeamID: "platform", IsActive: true, IsDefault: true},
		{UserID: "tomek", OrgID: orgID, Name: "Tomasz Lewandowski", Role: leave.RoleEmployee, TeamID: "platform", IsActive: true, IsDefault: true},
	}
	for _, m := range memberships {
		if err := store.SaveMembership(ctx, m); err != nil {
			return err
		}
	}

	// Memberships first: SaveTeam checks the manager's role.
	err = store.SaveTeam(ctx, leave.Team{ID: "platform", OrgID: orgID, Name: "Platform", ManagerID: "piotr"})
	if err != nil {
		return err
	}

	catalog := factory.DefaultCatalog(orgID)
	for _, lt := range catalog {
		if err := store.SaveLeaveType(ctx, lt); err != nil {
			return err
		}
	}

	year := calendar.Today().Year
	for _, m := range memberships {
		for _, lt := range catalog {
			if !lt.RequiresBalance || lt.IsDerived() {
				continue
			}
			b := leave.Balance{
				UserID:      m.UserID,
				OrgID:       orgID,
				LeaveTypeID: lt.ID,
				Year:        year,
				Entitled:    lt.DaysPerYear,
			}
			if err := store.SaveBalance(ctx, b); err != nil {
				return err
			}
		}
		// Derived types track usage against their own row.
		for _, lt := range catalog {
			if !lt.IsDerived() {
				continue
			}
			b := leave.Balance{
				UserID:      m.UserID,
				OrgID:       orgID,
				LeaveTypeID: lt.ID,
				Year:        year,
				Entitled:    decimal.NewFromInt(int64(lt.AnnualCap)),
			}
			if err := store.SaveBalance(ctx, b); err != nil {
				return err
			}
		}
	}

	for _, h := range polishHolidays(year) {
		if err := store.SaveHoliday(ctx, h); err != nil {
			return err
		}
	}

	logger.Info("seeded demo organization",
		zap.String("org", orgID),
		zap.Int("members", len(memberships)),
		zap.Int("leave_types", len(catalog)),
		zap.Int("year", year))
	return nil
}

// =============================================================================
// PROVISION
// =============================================================================

func runProvision(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := sqlite.New(flagDBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	stores := leave.Stores{
		Organizations: store,
		Memberships:   store,
		Catalog:       store,
		Balances:      store,
		Requests:      store,
		Holidays:      store,
	}
	report, err := leave.ProvisionYear(cmd.Context(), stores, args[0], flagYear)
	if err != nil {
		return err
	}

	logger.Info("provisioned balances",
		zap.String("org", args[0]),
		zap.Int("year", report.Year),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped))
	return nil
}

// polishHolidays returns the fixed-date national holidays for a year.
// Movable feasts (Easter Monday, Corpus Christi) are left to admins.
func polishHolidays(year int) []leave.Holiday {
	fixed := []struct {
		month time.Month
		day   int
		name  string
	}{
		{time.January, 1, "New Year's Day"},
		{time.January, 6, "Epiphany"},
		{time.May, 1, "Labour Day"},
		{time.May, 3, "Constitution Day"},
		{time.August, 15, "Assumption Day"},
		{time.November, 1, "All Saints' Day"},
		{time.November, 11, "Independence Day"},
		{time.December, 25, "Christmas Day"},
		{time.December, 26, "Second Day of Christmas"},
	}
	out := make([]leave.Holiday, 0, len(fixed))
	for _, f := range fixed {
		out = append(out, leave.Holiday{
			ID:    fmt.Sprintf("pl-%d-%02d-%02d", year, f.month, f.day),
			OrgID: "demo",
			Date:  calendar.NewDate(year, f.month, f.day),
			Name:  f.name,
			Type:  leave.HolidayNational,
		})
	}
	return out
}
