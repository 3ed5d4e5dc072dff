package event

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hitoshi/cardmeet/internal/model"
	"github.com/hitoshi/cardmeet/internal/repository"
	"github.com/hitoshi/cardmeet/internal/security"
	"github.com/hitoshi/cardmeet/internal/snapshot"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	files := snapshot.NewStore(filepath.Join(t.TempDir(), "persistent_data.json"))
	store, err := repository.NewMemoryStore(files)
	if err != nil {
		t.Fatal(err)
	}
	return NewService(store, security.NewContentSanitizer())
}

func validInput() model.EventInput {
	return model.EventInput{
		Name:       "カードショップ交流会",
		Date:       "2025-09-01",
		StartTime:  "10:00",
		EndTime:    "17:00",
		Organizer:  "テスト運営",
		Area:       "関東",
		Prefecture: "東京都",
		Venue:      "テスト会場",
	}
}

func TestCreateEvent_Valid(t *testing.T) {
	svc := newTestService(t)

	ev, err := svc.CreateEvent(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if ev.ID == "" {
		t.Error("created event should have an ID")
	}
	if ev.Name != "カードショップ交流会" {
		t.Errorf("name = %q", ev.Name)
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*model.EventInput)
	}{
		{"イベント名が空", func(in *model.EventInput) { in.Name = "" }},
		{"イベント名が空白のみ", func(in *model.EventInput) { in.Name = "   " }},
		{"開催日が空", func(in *model.EventInput) { in.Date = "" }},
		{"開催日の形式不正", func(in *model.EventInput) { in.Date = "2025/09/01" }},
		{"開始時刻の形式不正", func(in *model.EventInput) { in.StartTime = "10時" }},
		{"終了時刻の形式不正", func(in *model.EventInput) { in.EndTime = "25" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)

			_, err := svc.CreateEvent(ctx, input)
			if err == nil {
				t.Fatal("CreateEvent() should fail validation")
			}

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
				t.Errorf("error = %v, want VALIDATION_ERROR", err)
			}
		})
	}
}

func TestCreateEvent_SanitizesDescription(t *testing.T) {
	svc := newTestService(t)

	input := validInput()
	input.Description = `<p>初心者歓迎</p><script>alert("xss")</script>`

	ev, err := svc.CreateEvent(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}

	if strings.Contains(ev.Description, "<script>") || strings.Contains(ev.Description, "alert") {
		t.Errorf("description should be sanitized, got %q", ev.Description)
	}
	if !strings.Contains(ev.Description, "<p>初心者歓迎</p>") {
		t.Errorf("allowed tags should be preserved, got %q", ev.Description)
	}
}

func TestGetEvent_NotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetEvent(context.Background(), "no-such-id")
	if err == nil {
		t.Fatal("GetEvent() should fail for unknown ID")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEventNotFound {
		t.Errorf("error = %v, want EVENT_NOT_FOUND", err)
	}
}

func TestUpdateEvent_NotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UpdateEvent(context.Background(), "no-such-id", validInput())
	if err == nil {
		t.Fatal("UpdateEvent() should fail for unknown ID")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEventNotFound {
		t.Errorf("error = %v, want EVENT_NOT_FOUND", err)
	}
}

func TestDeleteEvent_Roundtrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ev, err := svc.CreateEvent(ctx, validInput())
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteEvent(ctx, ev.ID); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}

	if err := svc.DeleteEvent(ctx, ev.ID); err == nil {
		t.Error("second delete should report EVENT_NOT_FOUND")
	}
}

func TestDeleteEventMaster_NotFound(t *testing.T) {
	svc := newTestService(t)

	err := svc.DeleteEventMaster(context.Background(), "no-such-master")
	if err == nil {
		t.Fatal("DeleteEventMaster() should fail for unknown ID")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeMasterNotFound {
		t.Errorf("error = %v, want EVENT_MASTER_NOT_FOUND", err)
	}
}

func TestListEvents_IncludesSeed(t *testing.T) {
	svc := newTestService(t)

	events, err := svc.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) == 0 {
		t.Fatal("fresh store should serve the seeded event")
	}
	if events[0].ID != snapshot.SeedEventID {
		t.Errorf("first event = %q, want seed event", events[0].ID)
	}
}
