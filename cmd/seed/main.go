// Command seed inserts development sample data for local testing.
// Idempotent: does nothing when the admin user (admin@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/foozio/prodmatic-sub002/internal/config"
	"github.com/foozio/prodmatic-sub002/internal/db"
	deliverydomain "github.com/foozio/prodmatic-sub002/internal/delivery/domain"
	deliveryrepo "github.com/foozio/prodmatic-sub002/internal/delivery/repository"
	ideadomain "github.com/foozio/prodmatic-sub002/internal/idea/domain"
	idearepo "github.com/foozio/prodmatic-sub002/internal/idea/repository"
	identitydomain "github.com/foozio/prodmatic-sub002/internal/identity/domain"
	identityrepo "github.com/foozio/prodmatic-sub002/internal/identity/repository"
	membershipdomain "github.com/foozio/prodmatic-sub002/internal/membership/domain"
	membershiprepo "github.com/foozio/prodmatic-sub002/internal/membership/repository"
	orgdomain "github.com/foozio/prodmatic-sub002/internal/organization/domain"
	orgrepo "github.com/foozio/prodmatic-sub002/internal/organization/repository"
	"github.com/foozio/prodmatic-sub002/internal/platform/logging"
	policydomain "github.com/foozio/prodmatic-sub002/internal/policy/domain"
	"github.com/foozio/prodmatic-sub002/internal/policy/engine"
	policyrepo "github.com/foozio/prodmatic-sub002/internal/policy/repository"
	productdomain "github.com/foozio/prodmatic-sub002/internal/product/domain"
	productrepo "github.com/foozio/prodmatic-sub002/internal/product/repository"
	"github.com/foozio/prodmatic-sub002/internal/security"
	userdomain "github.com/foozio/prodmatic-sub002/internal/user/domain"
	userrepo "github.com/foozio/prodmatic-sub002/internal/user/repository"
)

const (
	devPassword      = "password123"
	adminEmail       = "admin@example.com"
	contributorEmail = "contributor@example.com"
	adminID          = "dev-user-001"
	contributorID    = "dev-user-002"
	orgID            = "dev-org-001"
	productID        = "dev-product-001"
)

type seedIdea struct {
	id, title              string
	reach, impact, conf, e float64
}

var ideas = []seedIdea{
	{"dev-idea-001", "Dark mode for the dashboard", 4000, 1, 80, 2},
	{"dev-idea-002", "Slack notifications for status changes", 1500, 2, 50, 3},
	{"dev-idea-003", "CSV export of the roadmap", 800, 0.5, 100, 1},
}

var tasks = []struct {
	id, title string
	status    deliverydomain.TaskStatus
	priority  deliverydomain.Priority
	points    int
}{
	{"dev-task-001", "Design dark palette", deliverydomain.TaskDone, deliverydomain.PriorityHigh, 3},
	{"dev-task-002", "Theme switcher component", deliverydomain.TaskInProgress, deliverydomain.PriorityMedium, 5},
	{"dev-task-003", "Persist theme preference", deliverydomain.TaskTodo, deliverydomain.PriorityLow, 2},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db", zap.Error(err))
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	existing, err := users.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatal("seed check", zap.Error(err))
	}
	if existing != nil {
		log.Info("seed already applied; skipping", zap.String("email", adminEmail))
		return
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash([]byte(devPassword))
	if err != nil {
		log.Fatal("hash password", zap.Error(err))
	}

	s := &seeder{
		users:       users,
		identities:  identityrepo.NewPostgresRepository(conn),
		orgs:        orgrepo.NewPostgresRepository(conn),
		memberships: membershiprepo.NewPostgresRepository(conn),
		policies:    policyrepo.NewPostgresRepository(conn),
		products:    productrepo.NewPostgresRepository(conn),
		ideas:       idearepo.NewPostgresRepository(conn),
		delivery:    deliveryrepo.NewPostgresRepository(conn),
		hash:        hash,
		now:         time.Now().UTC(),
	}
	if err := db.NewTxManager(conn).RunInTx(ctx, s.run); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
	log.Info("seed completed",
		zap.String("admin_login", adminEmail),
		zap.String("contributor_login", contributorEmail),
		zap.String("password", devPassword))
}

type seeder struct {
	users       *userrepo.PostgresRepository
	identities  *identityrepo.PostgresRepository
	orgs        *orgrepo.PostgresRepository
	memberships *membershiprepo.PostgresRepository
	policies    *policyrepo.PostgresRepository
	products    *productrepo.PostgresRepository
	ideas       *idearepo.PostgresRepository
	delivery    *deliveryrepo.PostgresRepository
	hash        string
	now         time.Time
}

func (s *seeder) run(ctx context.Context) error {
	if err := s.user(ctx, adminID, adminEmail, "Ada Admin"); err != nil {
		return err
	}
	if err := s.user(ctx, contributorID, contributorEmail, "Cory Contributor"); err != nil {
		return err
	}
	if err := s.orgs.CreateOrganization(ctx, &orgdomain.Org{
		ID: orgID, Name: "Acme Dev", Slug: "acme-dev", CreatedBy: adminID, CreatedAt: s.now, UpdatedAt: s.now,
	}); err != nil {
		return fmt.Errorf("create org: %w", err)
	}
	for i, m := range []struct {
		userID string
		role   membershipdomain.Role
	}{
		{adminID, membershipdomain.RoleAdmin},
		{contributorID, membershipdomain.RoleContributor},
	} {
		if err := s.memberships.CreateMembership(ctx, &membershipdomain.Membership{
			ID: fmt.Sprintf("dev-membership-%03d", i+1), UserID: m.userID, OrgID: orgID, Role: m.role,
			CreatedAt: s.now, UpdatedAt: s.now,
		}); err != nil {
			return fmt.Errorf("create membership: %w", err)
		}
	}
	if err := s.policies.Create(ctx, &policydomain.Policy{
		ID: "dev-policy-001", OrgID: orgID, Name: "Admins delete products", Rules: engine.SamplePolicy,
		Enabled: true, CreatedAt: s.now, UpdatedAt: s.now,
	}); err != nil {
		return fmt.Errorf("create policy: %w", err)
	}
	if err := s.products.CreateProduct(ctx, &productdomain.Product{
		ID: productID, OrgID: orgID, Name: "Acme Dashboard", Key: "DASH",
		Description: "Customer-facing analytics dashboard", Stage: productdomain.StageDevelopment,
		CreatedBy: adminID, CreatedAt: s.now, UpdatedAt: s.now,
	}); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	for _, in := range ideas {
		rice, err := ideadomain.RICE(in.reach, in.impact, in.conf, in.e)
		if err != nil {
			return fmt.Errorf("score idea %s: %w", in.id, err)
		}
		if err := s.ideas.CreateIdea(ctx, &ideadomain.Idea{
			ID: in.id, OrgID: orgID, ProductID: productID, Title: in.title, Status: ideadomain.StatusSubmitted,
			Inputs:    ideadomain.Inputs{Reach: in.reach, Impact: in.impact, Confidence: in.conf, Effort: in.e},
			RICEScore: &rice, CreatedBy: contributorID, CreatedAt: s.now, UpdatedAt: s.now,
		}); err != nil {
			return fmt.Errorf("create idea: %w", err)
		}
	}
	for _, t := range tasks {
		if err := s.delivery.CreateTask(ctx, &deliverydomain.Task{
			ID: t.id, OrgID: orgID, ProductID: productID, Title: t.title, Status: t.status,
			Priority: t.priority, AssigneeID: contributorID, StoryPoints: t.points,
			CreatedBy: adminID, CreatedAt: s.now, UpdatedAt: s.now,
		}); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
	}
	return nil
}

func (s *seeder) user(ctx context.Context, id, email, name string) error {
	if err := s.users.Create(ctx, &userdomain.User{
		ID: id, Email: email, Name: name, Status: userdomain.UserStatusActive, CreatedAt: s.now, UpdatedAt: s.now,
	}); err != nil {
		return fmt.Errorf("create user %s: %w", email, err)
	}
	if err := s.identities.Create(ctx, &identitydomain.Identity{
		ID: id + "-identity", UserID: id, Provider: identitydomain.IdentityProviderLocal,
		ProviderID: email, PasswordHash: s.hash, CreatedAt: s.now,
	}); err != nil {
		return fmt.Errorf("create identity %s: %w", email, err)
	}
	return nil
}
