// Command auditctl is the operator tool for the audit service: seeding admins,
// importing catalog and roster spreadsheets, and exporting the audit report.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/wms-platform/audit-service/internal/application"
	"github.com/wms-platform/audit-service/internal/auth"
	"github.com/wms-platform/audit-service/internal/config"
	"github.com/wms-platform/audit-service/internal/domain"
	mongoRepo "github.com/wms-platform/audit-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/audit-service/internal/spreadsheet"
	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/mongodb"
)

type adminOps interface {
	UploadReference(ctx context.Context, rows []application.ReferenceRow) (*application.UploadResult, error)
	AssignStaff(ctx context.Context, rows []application.RosterRow) (*application.UploadResult, error)
	AssignClients(ctx context.Context, rows []application.RosterRow) (*application.UploadResult, error)
	InventoryReport(ctx context.Context, query application.ReportQuery) ([]application.ReportRowDTO, error)
}

type registrar interface {
	Register(ctx context.Context, cmd application.RegisterCommand) (*application.RegisterResult, error)
}

// cli runs one subcommand against the services
type cli struct {
	admin adminOps
	auth  registrar
	out   io.Writer
}

type command struct {
	summary string
	run     func(c *cli, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"seed-admin": {summary: "create or update an admin account", run: (*cli).seedAdmin},
	"import":     {summary: "load a CSV or XLSX file into the catalog or a roster", run: (*cli).importFile},
	"export":     {summary: "write the inventory report to a CSV or XLSX file", run: (*cli).export},
}

var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: auditctl <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].summary)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}

	logger := logging.New(logging.DefaultConfig(config.ServiceName + "-ctl"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, closeFn, err := connect(ctx, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize")
		os.Exit(1)
	}
	defer closeFn()

	if err := cmd.run(c, ctx, os.Args[2:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.WithError(err).Error("Command failed", "command", os.Args[1])
		closeFn()
		os.Exit(1)
	}
}

func connect(ctx context.Context, logger *logging.Logger) (*cli, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	client, err := mongodb.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = client.Close(context.Background()) }

	db := client.Database()
	if err := mongoRepo.EnsureIndexes(ctx, db); err != nil {
		closeFn()
		return nil, nil, err
	}

	entries := mongoRepo.NewEntryRepository(db, nil)
	identities := mongoRepo.NewIdentityRepository(db, nil)
	references := mongoRepo.NewReferenceRepository(db, nil)
	hasher := auth.NewHasher(cfg.BcryptCost)

	return &cli{
		admin: application.NewAdminService(application.AdminDependencies{
			Entries:    entries,
			Identities: identities,
			References: references,
			Hasher:     hasher,
			Logger:     logger,
		}),
		auth: application.NewAuthService(identities, hasher, nil, logger),
		out:  os.Stdout,
	}, closeFn, nil
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) seedAdmin(ctx context.Context, args []string) error {
	fs := newFlagSet("seed-admin", c.out)
	email := fs.String("email", "", "admin email (required)")
	password := fs.String("password", os.Getenv("AUDITCTL_ADMIN_PASSWORD"), "admin password, defaults to $AUDITCTL_ADMIN_PASSWORD")
	name := fs.String("name", "Administrator", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		fmt.Fprintln(c.out, "seed-admin: -email and -password are required")
		return errUsage
	}

	result, err := c.auth.Register(ctx, application.RegisterCommand{
		Name:     *name,
		Role:     domain.RoleAdmin,
		Email:    *email,
		Password: *password,
	})
	if err != nil {
		return err
	}
	return c.printJSON(result)
}

func (c *cli) importFile(ctx context.Context, args []string) error {
	fs := newFlagSet("import", c.out)
	kindFlag := fs.String("kind", "", "inventory, staff or client (required)")
	path := fs.String("file", "", "CSV or XLSX file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		fmt.Fprintln(c.out, "import: -file is required")
		return errUsage
	}
	kind, err := spreadsheet.ParseKind(*kindFlag)
	if err != nil {
		fmt.Fprintf(c.out, "import: %v\n", err)
		return errUsage
	}

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	table, err := spreadsheet.Read(filepath.Base(*path), f)
	if err != nil {
		return err
	}

	var result *application.UploadResult
	switch kind {
	case spreadsheet.KindInventory:
		rows, err := spreadsheet.ReferenceRows(table)
		if err != nil {
			return err
		}
		result, err = c.admin.UploadReference(ctx, rows)
		if err != nil {
			return err
		}
	default:
		rows, err := spreadsheet.RosterRows(table, kind)
		if err != nil {
			return err
		}
		assign := c.admin.AssignStaff
		if kind == spreadsheet.KindClient {
			assign = c.admin.AssignClients
		}
		result, err = assign(ctx, rows)
		if err != nil {
			return err
		}
	}
	return c.printJSON(result)
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs := newFlagSet("export", c.out)
	path := fs.String("out", "", "output file ending in .csv or .xlsx (required)")
	start := fs.String("start", "", "first day, YYYY-MM-DD")
	end := fs.String("end", "", "last day, YYYY-MM-DD, inclusive")
	limit := fs.Int64("limit", 0, "maximum rows, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	write := map[string]func(io.Writer, []application.ReportRowDTO) error{
		".csv":  spreadsheet.WriteReportCSV,
		".xlsx": spreadsheet.WriteReportXLSX,
	}[strings.ToLower(filepath.Ext(*path))]
	if write == nil {
		fmt.Fprintln(c.out, "export: -out must end in .csv or .xlsx")
		return errUsage
	}

	query := application.ReportQuery{Limit: *limit}
	for _, d := range []struct {
		raw string
		dst **time.Time
	}{{*start, &query.StartDate}, {*end, &query.EndDate}} {
		if d.raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", d.raw)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", d.raw, err)
		}
		*d.dst = &t
	}

	rows, err := c.admin.InventoryReport(ctx, query)
	if err != nil {
		return err
	}

	f, err := os.Create(*path)
	if err != nil {
		return err
	}
	if err := write(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "wrote %d rows to %s\n", len(rows), *path)
	return nil
}
