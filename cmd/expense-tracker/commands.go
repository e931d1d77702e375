package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"expensetracker/internal/core"
	"expensetracker/internal/metrics"
	"expensetracker/internal/state"
)

const dateLayout = "2006-01-02"

var errUsage = errors.New("usage")

type healthChecker interface {
	CheckDatabaseHealth(ctx context.Context) bool
}

type app struct {
	store    *state.Store
	engine   healthChecker
	gatherer prometheus.Gatherer
	out      io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		return a.list(ctx, rest)
	case "add":
		return a.add(ctx, rest)
	case "categories":
		return a.categories(ctx)
	case "vendors":
		return a.vendors(ctx, rest)
	case "summary":
		return a.summary(ctx, rest)
	case "health":
		return a.health(ctx)
	case "stats":
		return a.stats()
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

// filterFlags registers the expense filter flags on fs and returns a
// function building the filter once fs has been parsed.
func filterFlags(fs *flag.FlagSet) func() (*core.ExpenseFilter, error) {
	category := fs.String("category", "", "comma-separated category ids")
	search := fs.String("search", "", "text to look for in vendor, description and notes")
	minAmount := fs.String("min", "", "minimum amount")
	maxAmount := fs.String("max", "", "maximum amount")
	from := fs.String("from", "", "first date (YYYY-MM-DD)")
	to := fs.String("to", "", "last date (YYYY-MM-DD)")

	return func() (*core.ExpenseFilter, error) {
		f := &core.ExpenseFilter{SearchText: *search, Categories: splitList(*category)}
		if *minAmount != "" {
			v, err := core.ParseAmount(*minAmount)
			if err != nil {
				return nil, fmt.Errorf("-min: %w", err)
			}
			f.MinAmount = &v
		}
		if *maxAmount != "" {
			v, err := core.ParseAmount(*maxAmount)
			if err != nil {
				return nil, fmt.Errorf("-max: %w", err)
			}
			f.MaxAmount = &v
		}
		if *from != "" || *to != "" {
			r := core.DateRange{Start: time.Time{}, End: time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)}
			if *from != "" {
				d, err := time.Parse(dateLayout, *from)
				if err != nil {
					return nil, fmt.Errorf("-from: %w", core.ErrInvalidDate)
				}
				r.Start = d
			}
			if *to != "" {
				d, err := time.Parse(dateLayout, *to)
				if err != nil {
					return nil, fmt.Errorf("-to: %w", core.ErrInvalidDate)
				}
				r.End = d.Add(24*time.Hour - time.Millisecond)
			}
			f.DateRange = &r
		}
		if f.IsEmpty() {
			return nil, nil
		}
		return f, nil
	}
}

// applyFilter parses args and reloads the expense list through the store.
func (a *app) applyFilter(ctx context.Context, name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	build := filterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%s: %v: %w", name, err, errUsage)
	}
	filter, err := build()
	if err != nil {
		return err
	}

	a.store.ClearError()
	a.store.SetFilter(ctx, filter)
	a.store.Wait()
	if msg := a.store.GetState().Error; msg != "" {
		return errors.New(msg)
	}
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	if err := a.applyFilter(ctx, "list", args); err != nil {
		return err
	}

	expenses := a.store.GetState().Expenses
	if len(expenses) == 0 {
		fmt.Fprintln(a.out, "No expenses found.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tVENDOR\tCATEGORY\tAMOUNT\tTAGS")
	for _, e := range expenses {
		names := make([]string, 0, len(e.Tags))
		for _, t := range e.Tags {
			names = append(names, t.Name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Date.Format(dateLayout), e.Vendor, e.Category.Name,
			core.FormatAmount(e.Amount, e.Currency), strings.Join(names, ","))
	}
	return w.Flush()
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	amount := fs.String("amount", "", "amount, e.g. 12.50 or 12,50")
	vendor := fs.String("vendor", "", "vendor name")
	category := fs.String("category", "other", "category id")
	currency := fs.String("currency", "", "currency code (defaults to the preferred currency)")
	date := fs.String("date", "", "date (YYYY-MM-DD, defaults to today)")
	description := fs.String("description", "", "description")
	notes := fs.String("notes", "", "notes")
	location := fs.String("location", "", "location")
	tags := fs.String("tags", "", "comma-separated tag names, created if missing")
	payment := fs.String("payment", "", "payment method id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("add: %v: %w", err, errUsage)
	}

	st := a.store.GetState()
	in := core.ExpenseInput{
		Vendor:      *vendor,
		Description: *description,
		Notes:       *notes,
		Location:    *location,
		Date:        time.Now().UTC().Truncate(24 * time.Hour),
	}

	var problems []string
	if *amount != "" {
		v, err := core.ParseAmount(*amount)
		if err != nil {
			problems = append(problems, core.MsgAmountPositive)
		} else {
			in.Amount = v
		}
	}
	if *date != "" {
		d, err := time.Parse(dateLayout, *date)
		if err != nil {
			problems = append(problems, core.MsgDateRequired)
		} else {
			in.Date = d
		}
	}
	if i := slices.IndexFunc(st.Categories, func(c core.Category) bool { return c.ID == *category }); i >= 0 {
		in.Category = st.Categories[i]
	}
	code := *currency
	if code == "" {
		code = core.DefaultCurrencyCode
		if st.UserPreferences != nil {
			code = st.UserPreferences.DefaultCurrency.Code
		}
	}
	if i := slices.IndexFunc(st.Currencies, func(c core.Currency) bool { return strings.EqualFold(c.Code, code) }); i >= 0 {
		in.Currency = st.Currencies[i]
	}
	if *payment != "" {
		if i := slices.IndexFunc(st.PaymentMethods, func(p core.PaymentMethod) bool { return p.ID == *payment }); i >= 0 {
			pm := st.PaymentMethods[i]
			in.PaymentMethod = &pm
		} else {
			problems = append(problems, fmt.Sprintf("unknown payment method %q", *payment))
		}
	}

	// The command line does not require a payment method.
	for _, msg := range core.ValidateExpense(in) {
		if msg != core.MsgPaymentMethodRequired && !slices.Contains(problems, msg) {
			problems = append(problems, msg)
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid expense:\n- %s", strings.Join(problems, "\n- "))
	}

	for _, name := range splitList(*tags) {
		tag, err := a.store.GetOrCreateTag(ctx, name)
		if err != nil {
			return fmt.Errorf("tag %q: %w", name, err)
		}
		// Names match case-insensitively, so "work,Work" is one tag.
		if slices.ContainsFunc(in.Tags, func(t core.Tag) bool { return t.ID == tag.ID }) {
			continue
		}
		in.Tags = append(in.Tags, tag)
	}

	id, err := a.store.CreateExpense(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s %s at %s (%s)\n", core.FormatAmount(in.Amount, in.Currency), in.Category.Name, in.Vendor, id)
	return nil
}

func (a *app) categories(ctx context.Context) error {
	var walk func(nodes []*core.CategoryNode, depth int)
	walk = func(nodes []*core.CategoryNode, depth int) {
		for _, n := range nodes {
			fmt.Fprintf(a.out, "%s%s %s [%s]\n", strings.Repeat("  ", depth), n.Category.Icon, n.Category.Name, n.Category.ID)
			walk(n.Children, depth+1)
		}
	}
	walk(a.store.GetCategoryTree(ctx), 0)
	return nil
}

func (a *app) vendors(ctx context.Context, args []string) error {
	var (
		vendors []core.Vendor
		err     error
	)
	if query := strings.Join(args, " "); query != "" {
		vendors, err = a.store.SearchVendors(ctx, query)
	} else {
		vendors, err = a.store.GetPopularVendors(ctx, 0)
	}
	if err != nil {
		return err
	}
	if len(vendors) == 0 {
		fmt.Fprintln(a.out, "No vendors found.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VENDOR\tUSES")
	for _, v := range vendors {
		fmt.Fprintf(w, "%s\t%d\n", v.Name, v.UsageCount)
	}
	return w.Flush()
}

func (a *app) summary(ctx context.Context, args []string) error {
	if err := a.applyFilter(ctx, "summary", args); err != nil {
		return err
	}

	sum := a.store.Summary()
	currency := core.DefaultCurrencies()[0]
	if p := a.store.GetState().UserPreferences; p != nil {
		currency = p.DefaultCurrency
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TOTAL\t%s\t%d expenses\n", core.FormatAmount(core.RoundAmount(sum.Total), currency), sum.Count)
	for _, c := range sum.ByCategory {
		fmt.Fprintf(w, "%s\t%s\t%d\n", c.Category.Name, core.FormatAmount(c.Amount, currency), c.Count)
	}
	return w.Flush()
}

func (a *app) health(ctx context.Context) error {
	if !a.engine.CheckDatabaseHealth(ctx) {
		fmt.Fprintln(a.out, "unhealthy")
		return errors.New("database is not healthy")
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func (a *app) stats() error {
	stats, err := metrics.Operations(a.gatherer)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Fprintln(a.out, "No operations recorded.")
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OPERATION\tSTATUS\tCOUNT")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%s\t%.0f\n", s.Operation, s.Status, s.Count)
	}
	return w.Flush()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
