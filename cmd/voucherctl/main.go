// Command voucherctl is the operator CLI for the billing backend: it mints
// and exports voucher batches, redeems codes and drives an STK push from
// the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"hotspot-portal/internal/config"
	"hotspot-portal/internal/domain"
	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/adapter"
	"hotspot-portal/internal/infra/adapters/billing"
	"hotspot-portal/internal/infra/logging"
	"hotspot-portal/internal/infra/security"
	"hotspot-portal/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil); err != nil {
		fmt.Fprintln(os.Stderr, "voucherctl:", err)
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// cli carries what every subcommand needs.
type cli struct {
	backend  adapter.BillingBackend
	batches  usecase.BatchUseCase
	payments usecase.PaymentUseCase
	sess     *model.Session
	out      io.Writer
	log      *zerolog.Logger

	user, password string
}

type command struct {
	usage string
	auth  bool // requires -user/-password
	run   func(ctx context.Context, c *cli, args []string) error
}

var commands = map[string]command{
	"plans":    {usage: "list plans", run: cmdPlans},
	"status":   {usage: "-mac MAC: device activation status", run: cmdStatus},
	"redeem":   {usage: "CODE: redeem a voucher as a guest", run: cmdRedeem},
	"pay":      {usage: "-plan ID -phone MSISDN [-mac MAC]: send an STK push and wait for it", run: cmdPay},
	"generate": {usage: "-qty N (-plan ID | -value AMOUNT) [-note TEXT]: mint a batch", auth: true, run: cmdGenerate},
	"batches":  {usage: "list voucher batches", auth: true, run: cmdBatches},
	"vouchers": {usage: "-batch ID: list the codes of a batch", auth: true, run: cmdVouchers},
	"export":   {usage: "-batch ID [-format csv|xlsx] [-o FILE]: export a batch", auth: true, run: cmdExport},
}

// run parses global flags, dials the backend unless one is given, and
// dispatches to the subcommand.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, backend adapter.BillingBackend) error {
	fs := flag.NewFlagSet("voucherctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "portal YAML config; supplies billing.base_url")
	baseURL := fs.String("backend", os.Getenv("PORTAL_BACKEND_URL"), "billing backend base URL")
	user := fs.String("user", os.Getenv("PORTAL_USER"), "staff username")
	password := fs.String("password", os.Getenv("PORTAL_PASSWORD"), "staff password")
	timeout := fs.Duration("timeout", 15*time.Second, "per-request timeout")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}
	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := logging.NewWithWriter(stderr, config.LogConfig{Level: level, Format: "console"}, false)

	if backend == nil {
		url := *baseURL
		if *cfgPath != "" {
			cfg, err := config.LoadConfig(*cfgPath, true)
			if err != nil {
				return err
			}
			url = cfg.Billing.BaseURL
		}
		if url == "" {
			return errors.New("no backend: pass -backend, -config or set PORTAL_BACKEND_URL")
		}
		rc, err := billing.NewRESTClient(url, *timeout, logger)
		if err != nil {
			return err
		}
		backend = rc
	}

	c := &cli{
		backend:  backend,
		batches:  usecase.NewBatchUseCase(backend, logger),
		payments: usecase.NewPaymentUseCase(backend, nil, logger, *verbose),
		sess:     model.NewSession("cli"),
		out:      stdout,
		log:      logger,
		user:     *user,
		password: *password,
	}
	if cmd.auth || c.user != "" {
		if err := c.login(ctx); err != nil {
			return err
		}
	}
	return cmd.run(ctx, c, fs.Args()[1:])
}

func (c *cli) login(ctx context.Context) error {
	if c.user == "" || c.password == "" {
		return fmt.Errorf("this command needs -user and -password: %w", domain.ErrUnauthorized)
	}
	res, err := c.backend.Login(ctx, c.user, c.password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.sess.Authenticate(res.Tokens, c.user, security.JWTInspector{}.Expiry(res.Tokens.Access))
	c.log.Debug().Str("user", c.user).Bool("staff", res.IsStaff).Msg("logged in")
	return nil
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintln(w, "usage: voucherctl [flags] <command> [command flags]")
	fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-9s %s\n", n, commands[n].usage)
	}
	fmt.Fprintln(w, "\nflags:")
	fs.PrintDefaults()
}

// describe renders an error for the terminal, preferring the backend's own words.
func describe(err error) string {
	if msg := domain.ServerMessage(err); msg != "" {
		return msg
	}
	return strings.TrimSpace(err.Error())
}
