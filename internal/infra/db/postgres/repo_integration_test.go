//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/model"
)

func TestCounterRepo_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewCounterRepo(testPool)

	t.Run("concurrent increments are unique", func(t *testing.T) {
		cleanup(t)
		const n = 40
		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			got []int64
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := repo.Increment(ctx, "@chan")
				if err != nil {
					t.Errorf("Increment: %v", err)
					return
				}
				mu.Lock()
				got = append(got, v)
				mu.Unlock()
			}()
		}
		wg.Wait()
		sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
		for i, v := range got {
			if v != int64(i+1) {
				t.Fatalf("position %d: expected %d, got %d", i, i+1, v)
			}
		}
	})

	t.Run("set is upward only", func(t *testing.T) {
		cleanup(t)
		if err := repo.Set(ctx, "@chan", 10); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if err := repo.Set(ctx, "@chan", 5); !errors.Is(err, domain.ErrCounterRegress) {
			t.Fatalf("expected ErrCounterRegress, got %v", err)
		}
		n, _ := repo.Increment(ctx, "@chan")
		if n != 11 {
			t.Fatalf("expected 11, got %d", n)
		}
		all, err := repo.LoadAll(ctx)
		if err != nil || all["@chan"] != 11 {
			t.Fatalf("LoadAll = %v, %v", all, err)
		}
	})

	t.Run("set on a new destination never undoes a concurrent increment", func(t *testing.T) {
		cleanup(t)
		for i := 0; i < 50; i++ {
			dest := fmt.Sprintf("@race_%d", i)
			var (
				wg     sync.WaitGroup
				setErr error
				incErr error
			)
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, incErr = repo.Increment(ctx, dest)
			}()
			go func() {
				defer wg.Done()
				setErr = repo.Set(ctx, dest, 0)
			}()
			wg.Wait()
			if incErr != nil {
				t.Fatalf("Increment: %v", incErr)
			}
			if setErr != nil && !errors.Is(setErr, domain.ErrCounterRegress) {
				t.Fatalf("Set: %v", setErr)
			}
		}
		all, err := repo.LoadAll(ctx)
		if err != nil {
			t.Fatalf("LoadAll: %v", err)
		}
		for i := 0; i < 50; i++ {
			if v := all[fmt.Sprintf("@race_%d", i)]; v != 1 {
				t.Fatalf("@race_%d = %d, want 1", i, v)
			}
		}
	})
}

func TestGrantRepo_Integration(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewGrantRepo(testPool)

	if _, err := repo.FindBySubmitter(ctx, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	g, _ := model.NewGrant(1, "@chan", "Тел: 100", -1)
	short, _ := model.NewGrant(2, "", "tpl", time.Millisecond)
	for _, x := range []*model.Grant{g, short} {
		if err := repo.Save(ctx, x); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	found, err := repo.FindBySubmitter(ctx, 1)
	if err != nil || found.Template != "Тел: 100" || found.ExpiresAt != nil {
		t.Fatalf("unexpected grant %+v (%v)", found, err)
	}

	time.Sleep(10 * time.Millisecond)
	n, err := repo.ExpireBefore(ctx, time.Now())
	if err != nil || n != 1 {
		t.Fatalf("ExpireBefore = %d, %v", n, err)
	}
	active, _ := repo.ListActive(ctx)
	if len(active) != 1 || active[0].SubmitterID != 1 {
		t.Fatalf("unexpected active grants %+v", active)
	}

	if err := repo.Deactivate(ctx, 1); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if err := repo.Deactivate(ctx, 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPublishLogRepo_Integration(t *testing.T) {
	cleanup(t)
	ctx := context.Background()
	repo := NewPublishLogRepo(testPool)

	for i, status := range []model.PublishStatus{model.PublishStatusPublished, model.PublishStatusFailed} {
		req := &model.PublishRequest{ID: string(rune('a' + i)), SubmitterID: 1, DestinationID: "@chan", SequenceNumber: int64(i + 1), Text: "x"}
		if err := repo.Save(ctx, model.NewPublishRecord(req, status, nil)); err != nil {
			t.Fatalf("Save: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	recs, err := repo.ListRecent(ctx, "@chan", 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recs) != 2 || recs[0].SequenceNumber != 2 || recs[0].Status != model.PublishStatusFailed {
		t.Fatalf("unexpected records %+v", recs)
	}
}
