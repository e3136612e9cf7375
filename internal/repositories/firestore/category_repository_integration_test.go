//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"
	"time"

	domain "github.com/party-rentals/api/internal/domain"
	pconfig "github.com/party-rentals/api/internal/platform/config"
	pfirestore "github.com/party-rentals/api/internal/platform/firestore"
	"github.com/party-rentals/api/internal/repositories"
)

func TestCategoryRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	cfg := pconfig.FirestoreConfig{
		ProjectID:    "category-test",
		EmulatorHost: endpoint,
	}

	provider := pfirestore.NewProvider(cfg)
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	repo, err := NewCategoryRepository(provider)
	if err != nil {
		t.Fatalf("new category repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	now := time.Now().UTC()
	if err := repo.Insert(ctx, domain.Category{
		ID:        "cat_1",
		Name:      "Party Tents",
		Slug:      "party-tents",
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("insert category: %v", err)
	}

	// A differently cased name slugs to the same value and must collide.
	err = repo.Insert(ctx, domain.Category{
		ID:        "cat_2",
		Name:      "party tents",
		Slug:      "party-tents",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err == nil {
		t.Fatal("expected duplicate slug to be rejected")
	}
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict error, got %T %v", err, err)
	}

	// A genuinely different name is fine.
	if err := repo.Insert(ctx, domain.Category{
		ID:        "cat_3",
		Name:      "Dance Floors",
		Slug:      "dance-floors",
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("insert second category: %v", err)
	}

	categories, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}
}
