package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/entity"
)

type fakeStorage struct {
	users    map[string]*entity.User
	clients  []string
	meetings map[string]*entity.Meeting
	updates  []entity.MeetingUpdate
	usage    float64
	failUser bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		users:    map[string]*entity.User{},
		meetings: map[string]*entity.Meeting{},
	}
}

func (f *fakeStorage) UpsertUser(ctx context.Context, email string) (*entity.User, error) {
	if f.failUser {
		return nil, errors.New("connection refused")
	}
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	u := &entity.User{ID: "u-1", Email: email}
	f.users[email] = u
	return u, nil
}

func (f *fakeStorage) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, errors.New("record not found")
}

func (f *fakeStorage) AddUserUsage(ctx context.Context, userID string, costUSD float64) error {
	f.usage += costUSD
	return nil
}

func (f *fakeStorage) UpsertClient(ctx context.Context, userID, name string) (*entity.Client, error) {
	f.clients = append(f.clients, name)
	return &entity.Client{ID: "c-1", UserID: userID, Name: name}, nil
}

func (f *fakeStorage) ListClientsByUser(ctx context.Context, userID string) ([]*entity.Client, error) {
	return nil, nil
}

func (f *fakeStorage) CreateMeeting(ctx context.Context, req *entity.CreateMeeting) (*entity.Meeting, error) {
	m := &entity.Meeting{ID: "m-1", ClientID: req.ClientID, UserID: req.UserID, Filename: req.Filename, Status: "pending"}
	f.meetings[m.ID] = m
	return m, nil
}

func (f *fakeStorage) UpdateMeeting(ctx context.Context, meetingID string, upd *entity.MeetingUpdate) error {
	f.updates = append(f.updates, *upd)
	if upd.Status != nil {
		f.meetings[meetingID].Status = *upd.Status
	}
	return nil
}

func (f *fakeStorage) ListMeetingsByUser(ctx context.Context, userID string) ([]*entity.Meeting, error) {
	var out []*entity.Meeting
	for _, m := range f.meetings {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStorage) ListMeetingsByClient(ctx context.Context, clientID string) ([]*entity.Meeting, error) {
	return nil, nil
}

func newRecordingHarness(t *testing.T, store *fakeStorage) *harness {
	t.Helper()
	h := newHarness(t)
	h.uc = New(Deps{
		Validator:    h.uc.(*usecase).validator,
		Transcriber:  h.transcriber,
		Summarizer:   h.summarizer,
		Renderer:     h.renderer,
		Files:        h.files,
		Mailer:       h.mailer,
		Tracker:      h.tracker,
		Storage:      store,
		ScratchDir:   h.scratchDir,
		EmailCostUSD: 0.0004,
		Log:          logger.Discard(),
	})
	return h
}

func TestProcessRecordsMeeting(t *testing.T) {
	t.Parallel()

	store := newFakeStorage()
	h := newRecordingHarness(t, store)

	req := request()
	req.ClientName = "  LAIVE "
	if _, err := h.uc.Process(context.Background(), req); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	m := store.meetings["m-1"]
	if m == nil || m.Status != "completed" {
		t.Fatalf("meeting = %+v, want completed", m)
	}
	if m.ClientID == nil || *m.ClientID != "c-1" || store.clients[0] != "LAIVE" {
		t.Errorf("client not linked: %+v %v", m.ClientID, store.clients)
	}
	last := store.updates[len(store.updates)-1]
	if last.TotalCost == nil || *last.TotalCost != 0.0199 {
		t.Errorf("TotalCost = %v", last.TotalCost)
	}
	if last.ProviderID == nil || *last.ProviderID != "tr_1" {
		t.Errorf("ProviderID = %v", last.ProviderID)
	}
	if store.usage != 0.0199 {
		t.Errorf("usage = %v, want 0.0199", store.usage)
	}

	meetings, err := h.uc.Meetings(context.Background(), "ana@example.com")
	if err != nil || len(meetings) != 1 {
		t.Errorf("Meetings() = %v, %v", meetings, err)
	}
}

func TestProcessRecordsFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStorage()
	h := newRecordingHarness(t, store)
	h.transcriber.err = errors.New("status error")

	if _, err := h.uc.Process(context.Background(), request()); !errors.Is(err, ErrTranscription) {
		t.Fatalf("Process() error = %v", err)
	}
	if got := store.meetings["m-1"].Status; got != "failed" {
		t.Errorf("status = %q, want failed", got)
	}
	if store.usage != 0 {
		t.Errorf("usage = %v, want 0", store.usage)
	}
}

func TestRecorderErrorsDoNotFailPipeline(t *testing.T) {
	t.Parallel()

	store := newFakeStorage()
	store.failUser = true
	h := newRecordingHarness(t, store)

	resp, err := h.uc.Process(context.Background(), request())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !resp.EmailSent {
		t.Error("EmailSent = false")
	}
	if len(store.meetings) != 0 {
		t.Errorf("meetings = %d, want 0", len(store.meetings))
	}
}
