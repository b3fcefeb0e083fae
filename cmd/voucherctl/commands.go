package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/infra/export"
	"hotspot-portal/internal/usecase"
)

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
}

func cmdPlans(ctx context.Context, c *cli, args []string) error {
	plans, err := c.backend.ListPlans(ctx, c.sess.AccessToken())
	if err != nil {
		return fmt.Errorf("list plans: %s", describe(err))
	}
	tw := c.table()
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSPEED\tVALIDITY")
	for _, p := range plans {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d/%d Mbps\t%s\n", p.ID, p.Name, p.DisplayPrice(), p.DownloadSpeed, p.UploadSpeed, p.Summary())
	}
	return tw.Flush()
}

func cmdStatus(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("status")
	mac := fs.String("mac", "", "device MAC address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mac == "" {
		return fmt.Errorf("status: -mac is required")
	}
	st, err := c.backend.HotspotStatus(ctx, *mac)
	if err != nil {
		return fmt.Errorf("status: %s", describe(err))
	}
	if !st.Active {
		fmt.Fprintf(c.out, "%s: inactive\n", *mac)
		return nil
	}
	fmt.Fprintf(c.out, "%s: active as %s\n", *mac, st.Username)
	return nil
}

func cmdRedeem(ctx context.Context, c *cli, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("redeem: expected exactly one code")
	}
	res, err := c.backend.RedeemVoucher(ctx, "", args[0])
	if err != nil {
		return fmt.Errorf("redeem: %s", describe(err))
	}
	fmt.Fprintln(c.out, res.Message)
	if res.Customer != nil {
		fmt.Fprintf(c.out, "username: %s\n", res.Customer.Username)
	}
	return nil
}

func cmdPay(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("pay")
	planID := fs.Int64("plan", 0, "plan id")
	phone := fs.String("phone", "", "M-Pesa phone number")
	mac := fs.String("mac", "", "device MAC address")
	interval := fs.Duration("interval", 3*time.Second, "poll interval")
	attempts := fs.Int("attempts", 100, "poll attempts before giving up")
	maxWait := fs.Duration("max-wait", 5*time.Minute, "wall-clock cap, 0 for none")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := c.payments.Initiate(ctx, c.sess, *planID, *phone, *mac)
	if err != nil {
		return fmt.Errorf("pay: %s", describe(err))
	}
	fmt.Fprintf(c.out, "STK push sent, request %d. Check your phone.\n", id)

	tracker := usecase.NewPaymentTracker(c.backend, usecase.TrackerConfig{
		Interval:    *interval,
		MaxAttempts: *attempts,
		MaxWait:     *maxWait,
	}, c.log)
	outcome, err := tracker.Await(ctx, c.sess, id, usecase.ObserverFuncs{
		OnProgress: func(attempt int, status model.PaymentStatus, err error) {
			if err != nil {
				fmt.Fprintf(c.out, "  #%d %s (retrying: %s)\n", attempt, status, describe(err))
				return
			}
			fmt.Fprintf(c.out, "  #%d %s\n", attempt, status)
		},
	})
	if outcome == model.OutcomeCompleted {
		fmt.Fprintln(c.out, "Payment completed.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("pay: %s: %s", outcome, describe(err))
	}
	return fmt.Errorf("pay: %s", outcome)
}

func cmdGenerate(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("generate")
	qty := fs.Int("qty", 0, "number of vouchers")
	planID := fs.Int64("plan", 0, "plan id")
	value := fs.String("value", "", "face value when no plan is given")
	note := fs.String("note", "", "batch note")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := model.GenerateRequest{Quantity: *qty, Note: *note}
	if *planID != 0 {
		req.PlanID = planID
	} else if *value != "" {
		v, err := decimal.NewFromString(*value)
		if err != nil {
			return fmt.Errorf("generate: bad -value %q: %w", *value, err)
		}
		req.Value = &v
	}
	b, err := c.batches.Generate(ctx, c.sess, req)
	if err != nil {
		return fmt.Errorf("generate: %s", describe(err))
	}
	fmt.Fprintf(c.out, "Successfully generated %d vouchers in batch #%d.\n", len(b.Vouchers), b.ID)
	return printVouchers(c, b)
}

func cmdBatches(ctx context.Context, c *cli, args []string) error {
	list, err := c.batches.ListBatches(ctx, c.sess)
	if err != nil {
		return fmt.Errorf("batches: %s", describe(err))
	}
	tw := c.table()
	fmt.Fprintln(tw, "ID\tCREATED\tQTY\tVALUE\tPLAN\tNOTE")
	for _, b := range list {
		plan := b.PlanName
		if plan == "" {
			plan = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
			b.ID, b.CreatedAt.Local().Format("2006-01-02 15:04"), b.Quantity, b.Value.StringFixed(2), plan, b.Note)
	}
	return tw.Flush()
}

func cmdVouchers(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("vouchers")
	id := fs.Int64("batch", 0, "batch id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	b, err := c.batches.Batch(ctx, c.sess, *id)
	if err != nil {
		return fmt.Errorf("vouchers: %s", describe(err))
	}
	return printVouchers(c, b)
}

func printVouchers(c *cli, b *model.VoucherBatch) error {
	tw := c.table()
	fmt.Fprintln(tw, "CODE\tAMOUNT\tSTATUS\tUSED BY")
	for _, v := range b.Vouchers {
		usedBy := "-"
		if v.UsedBy != nil {
			usedBy = *v.UsedBy
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Code, v.Amount.StringFixed(2), v.Status, usedBy)
	}
	return tw.Flush()
}

func cmdExport(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("export")
	id := fs.Int64("batch", 0, "batch id")
	format := fs.String("format", string(export.FormatCSV), "csv or xlsx")
	out := fs.String("o", "", "output file, default vouchers_batch_<id>.<format>")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f := export.Format(*format)
	if f != export.FormatCSV && f != export.FormatXLSX {
		return fmt.Errorf("export: unsupported format %q", *format)
	}

	b, err := c.batches.Batch(ctx, c.sess, *id)
	if err != nil {
		return fmt.Errorf("export: %s", describe(err))
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, b, f); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	path := *out
	if path == "" {
		path = export.Filename(b.ID, f)
	}
	if path == "-" {
		_, err := c.out.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(c.out, "wrote %d vouchers to %s\n", len(b.Vouchers), path)
	return nil
}
