// ABOUTME: Session commands for the admin CLI: login, logout, me, status and history
// ABOUTME: Output is colorized tables in the style of the other console tools

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/session"
)

func cmdLogin(ctx context.Context, a *app, args []string) error {
	var email, next string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--next", "-n":
			if i+1 < len(args) {
				next = args[i+1]
				i++
			}
		default:
			if email == "" {
				email = args[i]
			}
		}
	}
	if email == "" {
		return fmt.Errorf("usage: hris-admin login <email> [--next path]")
	}

	password := os.Getenv("HRIS_PASSWORD")
	if password == "" {
		fmt.Print("Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	user, err := a.loginFlow().Login(ctx, email, password, next)
	if err != nil {
		form := apiclient.ResolveFormError(err, "Login failed")
		for field, msgs := range form.FieldErrors {
			color.Yellow("  %s: %s\n", field, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("%s", form.Message)
	}

	green := color.New(color.FgGreen)
	fmt.Println()
	green.Printf("  ✓ Signed in as %s", user.Name)
	fmt.Printf(" (%s)\n", user.Role)
	fmt.Printf("  Landing page:   %s\n", a.history.Location())
	fmt.Println()
	return nil
}

func cmdLogout(ctx context.Context, a *app) error {
	if err := a.loginFlow().Logout(ctx); err != nil {
		return err
	}
	color.Green("  ✓ Signed out\n")
	return nil
}

func cmdMe(ctx context.Context, a *app) error {
	sess, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	printIdentity(sess.User)
	return nil
}

func printIdentity(u session.Identity) {
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	fmt.Println()
	cyan.Println("  Identity")
	cyan.Println("  --------")
	fmt.Printf("  User ID:        %s\n", u.ID)
	fmt.Printf("  Name:           %s\n", u.Name)
	fmt.Printf("  Email:          %s\n", u.Email)
	if u.Role != "" {
		green.Printf("  Role:           %s\n", u.Role)
	} else {
		fmt.Printf("  Role:           (none)\n")
	}
	fmt.Printf("  Employee ID:    %s\n", valueOr(u.EmployeeID, "(none)"))
	fmt.Printf("  Company ID:     %s\n", valueOr(u.CompanyID, "(none)"))
	if !u.HasRBACScope() {
		color.Yellow("  Permission checks will be denied until employee and company are known.\n")
	}
	fmt.Println()
}

func cmdStatus(ctx context.Context, a *app) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()

	green.Printf("  Backend:  ")
	fmt.Printf("%s\n", a.cfg.API.BaseURL)
	green.Printf("  Session:  ")
	fmt.Printf("%s", a.cfg.Session.Backend)
	if a.cfg.Session.Path != "" {
		fmt.Printf(" (%s)", a.cfg.Session.Path)
	}
	fmt.Println()

	snap := a.state.Snapshot()
	sess := a.sessions.Get(ctx)
	tok := sess.OAuth2Token()
	switch {
	case tok == nil:
		yellow.Printf("  Token:    ")
		fmt.Println("(not signed in)")
	case tok.Expiry.IsZero():
		green.Printf("  Token:    ")
		fmt.Println("present (opaque)")
	case tok.Valid():
		green.Printf("  Token:    ")
		fmt.Printf("valid for %s\n", time.Until(tok.Expiry).Round(time.Second))
	default:
		yellow.Printf("  Token:    ")
		fmt.Printf("access token expired %s ago", time.Since(tok.Expiry).Round(time.Second))
		if tok.RefreshToken != "" {
			fmt.Print(", will refresh on next call")
		}
		fmt.Println()
	}

	if snap.User != nil {
		green.Printf("  User:     ")
		fmt.Printf("%s <%s> (%s)\n", snap.User.Name, snap.User.Email, valueOr(snap.User.Role, "no role"))
	}
	fmt.Println()
	return nil
}

func cmdHistory(ctx context.Context, a *app, args []string) error {
	if a.db == nil {
		return fmt.Errorf("session history needs session.backend: sqlite")
	}

	limit := 20
	for i := 0; i < len(args); i++ {
		if (args[i] == "--limit" || args[i] == "-l") && i+1 < len(args) {
			n, err := strconv.Atoi(args[i+1])
			if err != nil {
				return fmt.Errorf("invalid --limit %q", args[i+1])
			}
			limit = n
			i++
		}
	}

	events, err := a.db.ListSessionEvents(ctx, limit)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Session Events")
	cyan.Println("  --------------")
	if len(events) == 0 {
		fmt.Println("  (no events)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  WHEN\tEVENT\tUSER\tDETAIL")
	fmt.Fprintln(w, "  ----\t-----\t----\t------")
	for _, e := range events {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("Jan 02 15:04:05"),
			e.Kind,
			valueOr(e.UserID, "-"),
			formatDetail(e.Detail))
	}
	w.Flush()
	fmt.Println()
	return nil
}

func formatDetail(detail map[string]any) string {
	if len(detail) == 0 {
		return ""
	}
	parts := make([]string, 0, len(detail))
	for k, v := range detail {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	slices.Sort(parts)
	return strings.Join(parts, " ")
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
