// ABOUTME: Role management commands for the admin CLI
// ABOUTME: Lists and edits roles, the permission catalog and user role assignments

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/rbac"
)

// cmdRoles handles roles subcommands
func cmdRoles(ctx context.Context, a *app, args []string) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	subcmd := "list"
	if len(args) > 0 {
		subcmd = args[0]
		args = args[1:]
	}

	switch subcmd {
	case "list", "ls":
		return cmdRolesList(ctx, a)
	case "show", "get":
		if len(args) != 1 {
			return fmt.Errorf("usage: hris-admin roles show <id>")
		}
		return cmdRolesShow(ctx, a, args[0])
	case "create", "add":
		payload, err := parseRoleFlags(args)
		if err != nil {
			return err
		}
		if err := a.adminAPI().CreateRole(ctx, payload); err != nil {
			return adminError(err, "Failed to create role")
		}
		color.Green("  ✓ Role %s created\n", payload.Name)
		return nil
	case "update", "edit":
		if len(args) < 1 {
			return fmt.Errorf("usage: hris-admin roles update <id> --name N [--permissions a:b,...]")
		}
		payload, err := parseRoleFlags(args[1:])
		if err != nil {
			return err
		}
		if err := a.adminAPI().UpdateRole(ctx, args[0], payload); err != nil {
			return adminError(err, "Failed to update role")
		}
		color.Green("  ✓ Role %s updated\n", args[0])
		return nil
	case "delete", "rm", "remove":
		if len(args) != 1 {
			return fmt.Errorf("usage: hris-admin roles delete <id>")
		}
		if err := a.adminAPI().DeleteRole(ctx, args[0]); err != nil {
			return adminError(err, "Failed to delete role")
		}
		color.Green("  ✓ Role %s deleted\n", args[0])
		return nil
	default:
		return fmt.Errorf("unknown roles subcommand: %s (use list, show, create, update, delete)", subcmd)
	}
}

func parseRoleFlags(args []string) (rbac.RolePayload, error) {
	var p rbac.RolePayload
	for i := 0; i < len(args); i++ {
		if i+1 >= len(args) {
			return p, fmt.Errorf("missing value for %s", args[i])
		}
		switch args[i] {
		case "--name":
			p.Name = args[i+1]
		case "--description", "-d":
			p.Description = args[i+1]
		case "--permissions", "-p":
			for _, id := range strings.Split(args[i+1], ",") {
				if id = strings.TrimSpace(id); id != "" {
					p.Permissions = append(p.Permissions, id)
				}
			}
		default:
			return p, fmt.Errorf("unknown flag %s", args[i])
		}
		i++
	}
	if p.Permissions == nil {
		p.Permissions = []string{}
	}
	return p, nil
}

// adminError flattens an API error with its field errors for the terminal.
func adminError(err error, fallback string) error {
	form := apiclient.ResolveFormError(err, fallback)
	for field, msgs := range form.FieldErrors {
		color.Yellow("  %s: %s\n", field, strings.Join(msgs, ", "))
	}
	return fmt.Errorf("%s", form.Message)
}

func cmdRolesList(ctx context.Context, a *app) error {
	roles, err := a.adminAPI().Roles(ctx)
	if err != nil {
		return adminError(err, "Failed to load roles")
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Roles")
	cyan.Println("  -----")
	if len(roles) == 0 {
		fmt.Println("  (no roles)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tNAME\tPERMISSIONS\tDESCRIPTION")
	fmt.Fprintln(w, "  --\t----\t-----------\t-----------")
	for _, r := range roles {
		fmt.Fprintf(w, "  %s\t%s\t%d\t%s\n", truncate(r.ID, 20), r.Name, len(r.Permissions), truncate(r.Description, 32))
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdRolesShow(ctx context.Context, a *app, id string) error {
	role, err := a.adminAPI().Role(ctx, id)
	if err != nil {
		return adminError(err, "Failed to load role")
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Printf("  Role %s\n", role.Name)
	fmt.Printf("  ID:          %s\n", role.ID)
	fmt.Printf("  Description: %s\n", valueOr(role.Description, "(none)"))
	fmt.Println("  Permissions:")
	for _, p := range role.Permissions {
		fmt.Printf("    - %s\n", p)
	}
	fmt.Println()
	return nil
}

func cmdPermissions(ctx context.Context, a *app) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	perms, err := a.adminAPI().Permissions(ctx)
	if err != nil {
		return adminError(err, "Failed to load permissions")
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Permission Catalog")
	cyan.Println("  ------------------")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tCATEGORY\tLABEL")
	fmt.Fprintln(w, "  --\t--------\t-----")
	for _, p := range perms {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", p.ID, p.Category, p.Label)
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdUsers(ctx context.Context, a *app) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	users, err := a.adminAPI().UsersWithRoles(ctx)
	if err != nil {
		return adminError(err, "Failed to load users")
	}

	cyan := color.New(color.FgCyan)
	fmt.Println()
	cyan.Println("  Users")
	cyan.Println("  -----")
	if len(users) == 0 {
		fmt.Println("  (no users)")
		fmt.Println()
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tEMPLOYEE\tNAME\tEMAIL\tROLES\tACTIVE")
	fmt.Fprintln(w, "  --\t--------\t----\t-----\t-----\t------")
	for _, u := range users {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%t\n",
			truncate(u.ID, 16),
			valueOr(u.EmployeeNumber, "-"),
			truncate(u.FullName, 24),
			truncate(u.Email, 32),
			strings.Join(u.Roles, ","),
			u.IsActive)
	}
	w.Flush()
	fmt.Println()
	return nil
}

func cmdAssignRole(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: hris-admin assign-role <user-id> <role>")
	}
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	if err := a.adminAPI().AssignRole(ctx, args[0], args[1]); err != nil {
		return adminError(err, "Failed to assign role")
	}
	color.Green("  ✓ %s is now %s\n", args[0], args[1])
	return nil
}
