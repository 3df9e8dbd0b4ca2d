// Package main provides a CLI tool for managing admin roles in the
// gateway's role store. Role grants go straight to PostgreSQL rather than
// through the gateway API, so the first admin can be bootstrapped before
// any admin session exists.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/theceo1/trustbank-gateway/internal/models"
)

const commandTimeout = 30 * time.Second

type roleManager struct {
	pool *pgxpool.Pool
}

func main() {
	var (
		host        = flag.String("host", "localhost", "PostgreSQL host")
		port        = flag.Int("port", 5432, "PostgreSQL port")
		database    = flag.String("db", "trustbank", "Database name")
		user        = flag.String("user", "", "Database user")
		password    = flag.String("password", "", "Database password (or set PGPASSWORD)")
		sslMode     = flag.String("sslmode", "require", "SSL mode")
		action      = flag.String("action", "show", "Action to perform: grant, revoke, show")
		userID      = flag.String("user-id", "", "Principal ID the action applies to")
		roleName    = flag.String("role", "admin", "Role name for grant: admin or super_admin")
		permissions = flag.String("permissions", "", "Comma-separated permission strings for grant")
	)
	flag.Parse()

	if *userID == "" {
		fmt.Fprintf(os.Stderr, "-user-id is required\n")
		os.Exit(1)
	}

	if *password == "" {
		*password = os.Getenv("PGPASSWORD")
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		*host, *port, *database, *user, *password, *sslMode)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to role store: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	manager := &roleManager{pool: pool}

	switch *action {
	case "grant":
		if *roleName != "admin" && *roleName != "super_admin" {
			fmt.Fprintf(os.Stderr, "Role must be admin or super_admin, got %q\n", *roleName)
			os.Exit(1)
		}
		role := &models.AdminRole{
			Name:        *roleName,
			Permissions: parseStringList(*permissions),
		}
		if err := manager.grant(ctx, *userID, role); err != nil {
			fmt.Fprintf(os.Stderr, "Error granting role: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Granted %s to %s\n", role.Name, *userID)
	case "revoke":
		if err := manager.revoke(ctx, *userID); err != nil {
			fmt.Fprintf(os.Stderr, "Error revoking role: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Revoked admin role from %s\n", *userID)
	case "show":
		role, err := manager.show(ctx, *userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error looking up role: %v\n", err)
			os.Exit(1)
		}
		printRole(*userID, role)
	default:
		fmt.Fprintf(os.Stderr, "Unknown action: %s\n", *action)
		os.Exit(1)
	}
}

func (m *roleManager) grant(ctx context.Context, userID string, role *models.AdminRole) error {
	_, err := m.pool.Exec(ctx,
		`INSERT INTO admin_roles (user_id, name, permissions) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET name = $2, permissions = $3`,
		userID, role.Name, role.Permissions,
	)
	return err
}

func (m *roleManager) revoke(ctx context.Context, userID string) error {
	tag, err := m.pool.Exec(ctx, `DELETE FROM admin_roles WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no role record for %s", userID)
	}
	return nil
}

func (m *roleManager) show(ctx context.Context, userID string) (*models.AdminRole, error) {
	var role models.AdminRole
	err := m.pool.QueryRow(ctx,
		`SELECT name, permissions FROM admin_roles WHERE user_id = $1`,
		userID,
	).Scan(&role.Name, &role.Permissions)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func printRole(userID string, role *models.AdminRole) {
	if role == nil {
		fmt.Printf("%s holds no admin role\n", userID)
		return
	}
	fmt.Printf("User:        %s\n", userID)
	fmt.Printf("Role:        %s\n", role.Name)
	fmt.Printf("Permissions: %s\n", strings.Join(role.Permissions, ", "))
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
