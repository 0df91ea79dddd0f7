package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"exptrack/internal/api"
	"exptrack/internal/core"
	"exptrack/internal/gate"
	"exptrack/internal/oauth"
	"exptrack/internal/reports"
	"exptrack/internal/session"
	sheets "exptrack/internal/sheets/google"
)

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

// prompt reads one line from stdin after printing label.
func (e *env) prompt(label string) string {
	fmt.Fprint(e.out, label)
	line, _ := e.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// fail prints msg for the user and returns errReported.
func (e *env) fail(msg string) error {
	fmt.Fprintln(e.out, msg)
	return errReported
}

// requireRoute navigates to path and fails when the gate sends the user
// elsewhere.
func (e *env) requireRoute(ctx context.Context, path string) error {
	r, err := e.app.Navigate(ctx, path)
	if err != nil {
		return err
	}
	if r.Path == gate.LoginPath {
		return e.fail("Please sign in first: exptrack login")
	}
	if r.Path != path {
		return e.fail(fmt.Sprintf("You do not have access to %s", path))
	}
	return nil
}

func (e *env) signedIn(res session.Result) error {
	if !res.Success {
		return e.fail(res.Error)
	}
	id, _ := e.app.Session().Identity()
	fmt.Fprintf(e.out, "Signed in as %s (%s)\n", id.DisplayName(), id.Role.Label())
	return nil
}

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlags("login")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		*username = e.prompt("Username: ")
	}
	if *password == "" {
		*password = e.prompt("Password: ")
	}
	res, err := e.app.Login(ctx, core.Credentials{Username: *username, Password: *password})
	if err != nil {
		return err
	}
	return e.signedIn(res)
}

func runGoogleLogin(ctx context.Context, e *env, _ []string) error {
	clientJSON, err := e.cfg.GoogleOAuthClient()
	if err != nil {
		return fmt.Errorf("google sign-in: %w", err)
	}
	oauthCfg, err := oauth.ConfigFromJSON(clientJSON)
	if err != nil {
		return err
	}
	flow := oauth.NewFlow(oauthCfg,
		oauth.WithPort(e.cfg.OAuthRedirectPort),
		oauth.WithLogger(e.logger),
		oauth.WithPrompt(func(u string) {
			fmt.Fprintf(e.out, "Open this URL to sign in with Google:\n%s\n", u)
		}))
	idToken, err := flow.IDToken(ctx)
	if err != nil {
		return fmt.Errorf("google sign-in: %w", err)
	}
	res, err := e.app.Login(ctx, core.Credentials{GoogleToken: idToken})
	if err != nil {
		return err
	}
	return e.signedIn(res)
}

func runRegister(ctx context.Context, e *env, args []string) error {
	fs := newFlags("register")
	var reg core.Registration
	fs.StringVar(&reg.Username, "u", "", "username")
	fs.StringVar(&reg.Email, "e", "", "email")
	fs.StringVar(&reg.Password, "p", "", "password")
	fs.StringVar(&reg.FirstName, "first", "", "first name")
	fs.StringVar(&reg.LastName, "last", "", "last name")
	fs.StringVar(&reg.Country, "country", "", "country")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if reg.Password == "" {
		reg.Password = e.prompt("Password: ")
	}
	if reg.Country != "" && !core.IsSupportedCountry(reg.Country) {
		return e.fail(fmt.Sprintf("Unsupported country %q", reg.Country))
	}
	res, err := e.app.Register(ctx, reg)
	if err != nil {
		return err
	}
	return e.signedIn(res)
}

func runLogout(ctx context.Context, e *env, _ []string) error {
	if err := e.app.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "Signed out")
	return nil
}

func runStatus(ctx context.Context, e *env, _ []string) error {
	id, ok := e.app.Session().Identity()
	if !ok {
		fmt.Fprintln(e.out, "Not signed in")
		return nil
	}
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "User\t%s (%s)\n", id.Username, id.DisplayName())
	fmt.Fprintf(w, "Email\t%s\n", id.Email)
	fmt.Fprintf(w, "Role\t%s\n", id.Role.Label())
	fmt.Fprintf(w, "Group member\t%t\n", id.IsGroupMember)
	fmt.Fprintf(w, "Country\t%s\n", core.DisplayCountry(id))
	fmt.Fprintf(w, "Currency\t%s\n", core.CurrencyFor(id.Country).Code)

	if raw, err := e.tokens.Token(ctx); err == nil && raw != "" {
		if info, err := session.InspectToken(raw); err == nil && !info.ExpiresAt.IsZero() {
			fmt.Fprintf(w, "Session expires\t%s\n", info.ExpiresAt.Local().Format(time.RFC1123))
		}
	}
	return w.Flush()
}

func runOpen(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return listRoutes(e)
	}
	if len(args) != 1 {
		return errors.New("usage: exptrack open [path]")
	}
	r, err := e.app.Navigate(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s (%s)\n", r.Name, r.Path)
	if id, ok := e.app.Session().Identity(); ok {
		fmt.Fprintln(e.out)
		for _, item := range gate.Navigation(id) {
			marker := " "
			if item.Path == r.Path {
				marker = "*"
			}
			fmt.Fprintf(e.out, "%s %-20s %s\n", marker, item.Name, item.Path)
		}
	}
	return nil
}

// listRoutes prints every route with the gate's decision for the current
// session.
func listRoutes(e *env) error {
	view := e.app.Session().View()
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	for _, r := range gate.Routes() {
		d := gate.Decide(view, r)
		verdict := d.Outcome.String()
		if d.Redirect != "" {
			verdict += " -> " + d.Redirect
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Path, r.Name, r.Tier, verdict)
	}
	return tw.Flush()
}

// rangeFlags registers -start and -end and resolves them after parsing.
func rangeFlags(fs *flag.FlagSet, def core.DateRange) func() (core.DateRange, error) {
	start := fs.String("start", def.Start.Format(core.DateLayout), "start date (yyyy-mm-dd)")
	end := fs.String("end", def.End.Format(core.DateLayout), "end date (yyyy-mm-dd)")
	return func() (core.DateRange, error) {
		return core.ParseDateRange(*start, *end)
	}
}

func (e *env) dashboard() *reports.Dashboard {
	c := e.app.Client()
	return reports.NewDashboard(c.Analytics(), c.Profile(), e.app.Session(), e.logger)
}

func (e *env) reports() *reports.Reports {
	c := e.app.Client()
	return reports.NewReports(c.Analytics(), c.Transactions(), e.logger)
}

func runDashboard(ctx context.Context, e *env, args []string) error {
	fs := newFlags("dashboard")
	resolve := rangeFlags(fs, core.CurrentMonth(time.Now()))
	if err := fs.Parse(args); err != nil {
		return err
	}
	r, err := resolve()
	if err != nil {
		return err
	}
	if err := e.requireRoute(ctx, "/app/dashboard"); err != nil {
		return err
	}

	v, err := e.dashboard().Load(ctx, r)
	if err != nil {
		return e.fail(reports.MsgDashboardFailed)
	}
	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Income\t%s\t\n", v.Format(v.Summary.TotalIncome))
	fmt.Fprintf(w, "Expenses\t%s\t\n", v.Format(v.Summary.TotalExpenses))
	fmt.Fprintf(w, "Net\t%s\t\n", v.Format(v.Summary.NetAmount))
	if err := w.Flush(); err != nil {
		return err
	}
	printAmounts(e.out, "Spending by category", v.CategoryRows())
	printAmounts(e.out, "Monthly trend", v.TrendRows())

	if v.TakeCountryPrompt() {
		fmt.Fprintln(e.out, "\nPlease select your country to set the currency for your transactions:")
		fmt.Fprintln(e.out, "  exptrack country <name>   (one of: "+strings.Join(core.Countries(), ", ")+")")
	}
	return nil
}

func printAmounts(w io.Writer, title string, rows [][2]string) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range rows {
		fmt.Fprintf(tw, "  %s\t%s\n", r[0], r[1])
	}
	tw.Flush()
}

func runCountry(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: exptrack country <name>")
	}
	if err := e.requireRoute(ctx, "/app/profile"); err != nil {
		return err
	}
	country := strings.Join(args, " ")
	if err := e.dashboard().SelectCountry(ctx, country); err != nil {
		if errors.Is(err, reports.ErrUnsupportedCountry) {
			return e.fail(fmt.Sprintf("Unsupported country %q", country))
		}
		return e.fail(api.UserMessage(err, reports.MsgCountryFailed))
	}
	fmt.Fprintf(e.out, "Country set to %s (%s)\n", country, core.CurrencyFor(country).Code)
	return nil
}

func runReports(ctx context.Context, e *env, args []string) error {
	fs := newFlags("reports")
	resolve := rangeFlags(fs, core.LastMonths(time.Now(), 6))
	if err := fs.Parse(args); err != nil {
		return err
	}
	r, err := resolve()
	if err != nil {
		return err
	}
	if err := e.requireRoute(ctx, "/app/reports"); err != nil {
		return err
	}

	data, err := e.reports().Load(ctx, r)
	if err != nil {
		return e.fail(reports.MsgReportFailed)
	}
	id, _ := e.app.Session().Identity()
	country := core.DisplayCountry(id)
	printAmounts(e.out, "Spending by category", reports.AmountRows(data.CategorySpending, country))
	printAmounts(e.out, "Monthly trend", reports.AmountRows(data.MonthlyTrend, country))

	if len(data.BudgetStatus) > 0 {
		fmt.Fprintln(e.out, "\nBudgets")
		tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
		for _, b := range data.BudgetStatus {
			note := ""
			switch {
			case b.IsOverBudget:
				note = "over budget"
			case b.IsNearLimit:
				note = "near limit"
			}
			fmt.Fprintf(tw, "  %s\t%s of %s\t%.0f%%\t%s\n", b.Label(),
				core.FormatAmount(b.Spent, country), core.FormatAmount(b.Budget.Amount, country), b.Percentage, note)
		}
		tw.Flush()
	}
	return nil
}

func runExport(ctx context.Context, e *env, args []string) error {
	fs := newFlags("export")
	resolve := rangeFlags(fs, core.LastMonths(time.Now(), 6))
	target := fs.String("target", "csv", "csv or sheets")
	dir := fs.String("dir", ".", "directory for csv exports")
	if err := fs.Parse(args); err != nil {
		return err
	}
	r, err := resolve()
	if err != nil {
		return err
	}
	if err := e.requireRoute(ctx, "/app/reports"); err != nil {
		return err
	}

	var exp reports.Exporter
	switch *target {
	case "csv":
		exp = reports.CSVFile{Dir: *dir}
	case "sheets":
		if !e.cfg.SheetsEnabled() {
			return errors.New("sheets export needs GOOGLE_SPREADSHEET_ID and service account credentials")
		}
		creds, err := e.cfg.GoogleServiceAccount()
		if err != nil {
			return err
		}
		exp, err = sheets.NewExporter(ctx, sheets.Config{
			SpreadsheetID:   e.cfg.GoogleSpreadsheetID,
			SheetName:       e.cfg.GoogleSheetName,
			CredentialsJSON: creds,
		}, e.logger)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown export target %q", *target)
	}

	where, n, err := e.reports().Export(ctx, r, exp)
	switch {
	case errors.Is(err, reports.ErrNoTransactions):
		return e.fail("No transactions found for the selected date range")
	case err != nil:
		return e.fail("Failed to export: " + api.UserMessage(err, err.Error()))
	}
	fmt.Fprintf(e.out, "Exported %d transactions to %s\n", n, where)
	return nil
}

func runForgotPassword(ctx context.Context, e *env, args []string) error {
	identifier := strings.Join(args, " ")
	if identifier == "" {
		remembered, err := e.tokens.RecoveryIdentifier(ctx)
		if err != nil {
			return err
		}
		identifier = remembered
	}
	if identifier == "" {
		identifier = e.prompt("Username or email: ")
	}
	if identifier == "" {
		return e.fail("Please enter your username or email")
	}
	if err := e.app.Client().ForgotPassword(ctx, identifier); err != nil {
		return e.fail(api.UserMessage(err, "Failed to send reset link"))
	}
	fmt.Fprintf(e.out, "If an account exists for %s, a reset link has been sent.\n", identifier)
	return nil
}

func runResetPassword(ctx context.Context, e *env, args []string) error {
	fs := newFlags("reset-password")
	token := fs.String("token", "", "reset token from the email")
	password := fs.String("p", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return errors.New("usage: exptrack reset-password -token token [-p password]")
	}
	if *password == "" {
		*password = e.prompt("New password: ")
	}
	if len(*password) < 6 {
		return e.fail("Password must be at least 6 characters")
	}
	if err := e.app.Client().ResetPassword(ctx, *token, *password); err != nil {
		return e.fail(api.UserMessage(err, "Failed to reset password"))
	}
	fmt.Fprintln(e.out, "Password updated. You can now sign in.")
	return nil
}

func runTransactions(ctx context.Context, e *env, args []string) error {
	fs := newFlags("transactions")
	resolve := rangeFlags(fs, core.CurrentMonth(time.Now()))
	kind := fs.String("type", "", "expense or income")
	if err := fs.Parse(args); err != nil {
		return err
	}
	r, err := resolve()
	if err != nil {
		return err
	}
	if err := e.requireRoute(ctx, "/app/transactions"); err != nil {
		return err
	}

	q := api.TransactionQuery{Type: core.TransactionType(strings.ToUpper(*kind)), Range: &r}
	txs, err := e.app.Client().Transactions().List(ctx, q)
	if err != nil {
		return e.fail(api.UserMessage(err, "Failed to load transactions"))
	}
	if len(txs) == 0 {
		fmt.Fprintln(e.out, "No transactions in this period")
		return nil
	}
	id, _ := e.app.Session().Identity()
	country := core.DisplayCountry(id)
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", tx.TransactionDate, tx.Type.Label(),
			core.FormatAmount(tx.Amount, country), tx.CategoryName, tx.Description)
	}
	return tw.Flush()
}

func runAdd(ctx context.Context, e *env, args []string) error {
	fs := newFlags("add")
	kind := fs.String("type", "expense", "expense or income")
	amount := fs.String("amount", "", "amount, e.g. 12.50")
	category := fs.String("category", "", "category id")
	account := fs.String("account", "", "account id")
	description := fs.String("d", "", "description")
	date := fs.String("date", time.Now().Format(core.DateLayout), "transaction date (yyyy-mm-dd)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *amount == "" {
		*amount = e.prompt("Amount: ")
	}
	value, err := core.ParseAmount(*amount)
	if err != nil {
		return e.fail(fmt.Sprintf("Invalid amount %q", *amount))
	}
	if err := e.requireRoute(ctx, "/app/transactions"); err != nil {
		return err
	}

	tx := core.Transaction{
		Type:            core.TransactionType(strings.ToUpper(*kind)),
		Amount:          value,
		Description:     *description,
		TransactionDate: *date,
		CategoryID:      core.ID(*category),
		AccountID:       core.ID(*account),
	}
	if err := tx.Validate(); err != nil {
		return e.fail(err.Error())
	}
	created, err := e.app.Client().Transactions().Create(ctx, tx)
	if err != nil {
		return e.fail(api.UserMessage(err, "Failed to save transaction"))
	}
	id, _ := e.app.Session().Identity()
	fmt.Fprintf(e.out, "Saved %s of %s on %s\n", strings.ToLower(created.Type.Label()),
		core.FormatAmount(created.Amount, core.DisplayCountry(id)), created.TransactionDate)
	return nil
}

func runPassword(ctx context.Context, e *env, args []string) error {
	fs := newFlags("password")
	var change core.PasswordChange
	fs.StringVar(&change.CurrentPassword, "old", "", "current password")
	fs.StringVar(&change.NewPassword, "new", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := e.requireRoute(ctx, "/app/profile"); err != nil {
		return err
	}
	if change.CurrentPassword == "" {
		change.CurrentPassword = e.prompt("Current password: ")
	}
	if change.NewPassword == "" {
		change.NewPassword = e.prompt("New password: ")
	}
	if err := e.app.Client().Profile().ChangePassword(ctx, change); err != nil {
		return e.fail(api.UserMessage(err, "Failed to change password"))
	}
	fmt.Fprintln(e.out, "Password changed")
	return nil
}

const adminUsage = "usage: exptrack admin users|stats|block <id>|unblock <id>|promote <id>|role <id> <role>|delete <id>"

func runAdmin(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.New(adminUsage)
	}
	if err := e.requireRoute(ctx, "/app/admin"); err != nil {
		return err
	}
	admin := e.app.Client().Admin()

	sub, rest := args[0], args[1:]
	switch sub {
	case "users":
		users, err := admin.Users(ctx)
		if err != nil {
			return e.fail(api.UserMessage(err, "Failed to load users"))
		}
		tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
		for _, u := range users {
			status := "active"
			if u.Blocked {
				status = "blocked"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.Role.Label(), status)
		}
		return tw.Flush()
	case "stats":
		stats, err := admin.SystemStats(ctx)
		if err != nil {
			return e.fail(api.UserMessage(err, "Failed to load statistics"))
		}
		fmt.Fprintf(e.out, "Users: %d\nTransactions: %d\nCategories: %d\n",
			stats.TotalUsers, stats.TotalTransactions, stats.TotalCategories)
		return nil
	}

	if len(rest) == 0 {
		return errors.New(adminUsage)
	}
	id := core.ID(rest[0])
	var err error
	switch sub {
	case "block":
		err = admin.Block(ctx, id)
	case "unblock":
		err = admin.Unblock(ctx, id)
	case "promote":
		err = admin.Promote(ctx, id)
	case "delete":
		err = admin.DeleteUser(ctx, id)
	case "role":
		if len(rest) < 2 {
			return errors.New(adminUsage)
		}
		role, perr := core.ParseRole(rest[1])
		if perr != nil {
			return e.fail(fmt.Sprintf("Unknown role %q", rest[1]))
		}
		err = admin.ChangeRole(ctx, id, role)
	default:
		return errors.New(adminUsage)
	}
	if err != nil {
		return e.fail(api.UserMessage(err, "Admin action failed"))
	}
	fmt.Fprintf(e.out, "%s: done for user %s\n", sub, id)
	return nil
}
