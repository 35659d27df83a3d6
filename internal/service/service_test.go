package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arturkryukov/purgeboard/internal/domain/model"
	"github.com/arturkryukov/purgeboard/internal/repository"
)

// testLogger — молчаливый logger для unit-тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAgentRepo — in-memory реализация repository.AgentRepository.
type fakeAgentRepo struct {
	mu     sync.Mutex
	nextID int64
	agents map[int64]*model.Agent
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{nextID: 1, agents: make(map[int64]*model.Agent)}
}

func (r *fakeAgentRepo) Create(_ context.Context, a *model.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.LastSeen = &now
	cp := *a
	r.agents[a.ID] = &cp
	return nil
}

func (r *fakeAgentRepo) GetByID(_ context.Context, id int64) (*model.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAgentRepo) List(_ context.Context) ([]*model.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.Agent
	for id := int64(1); id < r.nextID; id++ {
		if a, ok := r.agents[id]; ok {
			cp := *a
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *fakeAgentRepo) UpdateStatus(_ context.Context, id int64, status string, seenAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	a.LastSeen = &seenAt
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeAgentRepo) MarkOfflineBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, a := range r.agents {
		if a.Status == model.AgentStatusOnline && (a.LastSeen == nil || a.LastSeen.Before(cutoff)) {
			a.Status = model.AgentStatusOffline
			count++
		}
	}
	return count, nil
}

// fakeFileRepo — in-memory реализация repository.FileRecordRepository
// с той же compare-and-set семантикой approve/reject, что и в SQL.
type fakeFileRepo struct {
	mu     sync.Mutex
	nextID int64
	files  map[int64]*model.FileRecord
	agents *fakeAgentRepo
}

func newFakeFileRepo(agents *fakeAgentRepo) *fakeFileRepo {
	return &fakeFileRepo{nextID: 1, files: make(map[int64]*model.FileRecord), agents: agents}
}

func (r *fakeFileRepo) Create(_ context.Context, f *model.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents.agents[f.AgentID]; !ok {
		return fmt.Errorf("%w: агент %d не зарегистрирован", repository.ErrForeignKey, f.AgentID)
	}
	f.ID = r.nextID
	r.nextID++
	f.Status = model.FileStatusPending
	f.CreatedAt = time.Now().UTC()
	cp := *f
	r.files[f.ID] = &cp
	return nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, id int64) (*model.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFileRepo) ListPending(_ context.Context, search string) ([]*model.PendingFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.PendingFile
	for id := int64(1); id < r.nextID; id++ {
		f, ok := r.files[id]
		if !ok || f.Status != model.FileStatusPending {
			continue
		}
		if search != "" &&
			!strings.Contains(f.Filename, search) && !strings.Contains(f.FullPath, search) {
			continue
		}
		a, ok := r.agents.agents[f.AgentID]
		if !ok {
			return nil, fmt.Errorf("%w: файл %d ссылается на несуществующего агента %d",
				repository.ErrIntegrity, f.ID, f.AgentID)
		}
		result = append(result, &model.PendingFile{
			ID:           f.ID,
			Filename:     f.Filename,
			FullPath:     f.FullPath,
			AgentID:      f.AgentID,
			AgentAddress: a.Address,
			Status:       f.Status,
			CreatedAt:    f.CreatedAt,
		})
	}
	return result, nil
}

func (r *fakeFileRepo) Approve(_ context.Context, ids []int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, id := range ids {
		f, ok := r.files[id]
		if !ok || f.Status != model.FileStatusPending {
			continue
		}
		now := time.Now().UTC()
		f.Status = model.FileStatusApproved
		f.ApprovedAt = &now
		count++
	}
	return count, nil
}

func (r *fakeFileRepo) Reject(_ context.Context, ids []int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, id := range ids {
		f, ok := r.files[id]
		if !ok || f.Status != model.FileStatusPending {
			continue
		}
		f.Status = model.FileStatusRejected
		count++
	}
	return count, nil
}

func (r *fakeFileRepo) CountByStatus(_ context.Context) (*model.StatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := &model.StatusCounts{}
	for _, f := range r.files {
		switch f.Status {
		case model.FileStatusPending:
			counts.Pending++
		case model.FileStatusApproved:
			counts.Approved++
		case model.FileStatusRejected:
			counts.Rejected++
		}
	}
	return counts, nil
}

func TestAgentService_Register(t *testing.T) {
	ctx := context.Background()
	svc := NewAgentService(newFakeAgentRepo(), testLogger())

	a, err := svc.Register(ctx, "192.168.1.10")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if a.ID == 0 {
		t.Error("после регистрации ожидается ненулевой ID")
	}
	if a.Status != model.AgentStatusOffline {
		t.Errorf("Status = %q, ожидается offline по умолчанию", a.Status)
	}
}

func TestAgentService_Register_EmptyAddress(t *testing.T) {
	ctx := context.Background()
	svc := NewAgentService(newFakeAgentRepo(), testLogger())

	if _, err := svc.Register(ctx, "   "); !errors.Is(err, ErrValidation) {
		t.Errorf("Register() error = %v, ожидается ErrValidation", err)
	}
}

func TestAgentService_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewAgentService(newFakeAgentRepo(), testLogger())

	if _, err := svc.Get(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, ожидается ErrNotFound", err)
	}
}

func TestAgentService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAgentRepo()
	svc := NewAgentService(repo, testLogger())

	a, err := svc.Register(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	seen := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	if err := svc.UpdateStatus(ctx, a.ID, model.AgentStatusOnline, seen); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	got, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != model.AgentStatusOnline {
		t.Errorf("Status = %q, ожидается online", got.Status)
	}
	if got.LastSeen == nil || !got.LastSeen.Equal(seen) {
		t.Errorf("LastSeen = %v, ожидается %v", got.LastSeen, seen)
	}
}

func TestAgentService_UpdateStatus_InvalidStatus(t *testing.T) {
	ctx := context.Background()
	svc := NewAgentService(newFakeAgentRepo(), testLogger())

	err := svc.UpdateStatus(ctx, 1, "sleeping", time.Time{})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("UpdateStatus() error = %v, ожидается ErrValidation", err)
	}
}

func TestAgentService_UpdateStatus_ZeroSeenAt(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAgentRepo()
	svc := NewAgentService(repo, testLogger())

	a, _ := svc.Register(ctx, "10.0.0.2")
	before := time.Now().UTC()

	// Нулевое время заменяется текущим временем сервера
	if err := svc.UpdateStatus(ctx, a.ID, model.AgentStatusOnline, time.Time{}); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	got, _ := svc.Get(ctx, a.ID)
	if got.LastSeen == nil || got.LastSeen.Before(before) {
		t.Errorf("LastSeen = %v, ожидается не раньше %v", got.LastSeen, before)
	}
}

func TestFileApprovalService_Submit_UnknownAgent(t *testing.T) {
	ctx := context.Background()
	agents := newFakeAgentRepo()
	svc := NewFileApprovalService(newFakeFileRepo(agents), agents, testLogger())

	_, err := svc.Submit(ctx, "a.txt", "/tmp/a.txt", 99)
	if !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("Submit() error = %v, ожидается ErrUnknownAgent", err)
	}
}

func TestFileApprovalService_Submit_Validation(t *testing.T) {
	ctx := context.Background()
	agents := newFakeAgentRepo()
	svc := NewFileApprovalService(newFakeFileRepo(agents), agents, testLogger())

	if _, err := svc.Submit(ctx, "", "/tmp/a.txt", 1); !errors.Is(err, ErrValidation) {
		t.Errorf("Submit() с пустым filename: error = %v, ожидается ErrValidation", err)
	}
	if _, err := svc.Submit(ctx, "a.txt", "", 1); !errors.Is(err, ErrValidation) {
		t.Errorf("Submit() с пустым full_path: error = %v, ожидается ErrValidation", err)
	}
}

func TestFileApprovalService_ApproveReject_EmptyIDs(t *testing.T) {
	ctx := context.Background()
	agents := newFakeAgentRepo()
	svc := NewFileApprovalService(newFakeFileRepo(agents), agents, testLogger())

	if _, err := svc.Approve(ctx, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("Approve(nil) error = %v, ожидается ErrValidation", err)
	}
	if _, err := svc.Reject(ctx, []int64{}); !errors.Is(err, ErrValidation) {
		t.Errorf("Reject([]) error = %v, ожидается ErrValidation", err)
	}
}

func TestFileApprovalService_ApproveIsTerminal(t *testing.T) {
	ctx := context.Background()
	agents := newFakeAgentRepo()
	fileRepo := newFakeFileRepo(agents)
	agentSvc := NewAgentService(agents, testLogger())
	svc := NewFileApprovalService(fileRepo, agents, testLogger())

	a, _ := agentSvc.Register(ctx, "192.168.1.10")
	f, err := svc.Submit(ctx, "data.mat", "/var/data/data.mat", a.ID)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	count, err := svc.Approve(ctx, []int64{f.ID})
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if count != 1 {
		t.Errorf("первый Approve: count = %d, ожидается 1", count)
	}

	// Повторное одобрение и отклонение одобренной записи — no-op
	count, err = svc.Approve(ctx, []int64{f.ID})
	if err != nil {
		t.Fatalf("повторный Approve() error = %v", err)
	}
	if count != 0 {
		t.Errorf("повторный Approve: count = %d, ожидается 0", count)
	}
	count, _ = svc.Reject(ctx, []int64{f.ID})
	if count != 0 {
		t.Errorf("Reject одобренной записи: count = %d, ожидается 0", count)
	}

	got, _ := fileRepo.GetByID(ctx, f.ID)
	if got.Status != model.FileStatusApproved {
		t.Errorf("Status = %q, ожидается approved", got.Status)
	}
	if got.ApprovedAt == nil {
		t.Error("approved_at не установлен для одобренной записи")
	}
}

func TestFileApprovalService_RejectLeavesApprovedAtEmpty(t *testing.T) {
	ctx := context.Background()
	agents := newFakeAgentRepo()
	fileRepo := newFakeFileRepo(agents)
	agentSvc := NewAgentService(agents, testLogger())
	svc := NewFileApprovalService(fileRepo, agents, testLogger())

	a, _ := agentSvc.Register(ctx, "192.168.1.11")
	f, _ := svc.Submit(ctx, "temp.txt", "/tmp/temp.txt", a.ID)

	count, err := svc.Reject(ctx, []int64{f.ID})
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Reject: count = %d, ожидается 1", count)
	}

	got, _ := fileRepo.GetByID(ctx, f.ID)
	if got.Status != model.FileStatusRejected {
		t.Errorf("Status = %q, ожидается rejected", got.Status)
	}
	if got.ApprovedAt != nil {
		t.Errorf("approved_at = %v у отклонённой записи, ожидается NULL", got.ApprovedAt)
	}
}

func TestFileApprovalService_ListPendingSearch(t *testing.T) {
	ctx := context.Background()
	agents := newFakeAgentRepo()
	fileRepo := newFakeFileRepo(agents)
	agentSvc := NewAgentService(agents, testLogger())
	svc := NewFileApprovalService(fileRepo, agents, testLogger())

	a, _ := agentSvc.Register(ctx, "192.168.1.10")
	svc.Submit(ctx, "matlab_script.m", "/opt/scripts/matlab_script.m", a.ID)
	svc.Submit(ctx, "data.mat", "/var/data/data.mat", a.ID)
	svc.Submit(ctx, "report.pdf", "/home/user/report.pdf", a.ID)

	// Без поиска — все три, в порядке поступления
	all, err := svc.ListPending(ctx, "")
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, ожидается 3", len(all))
	}
	if all[0].Filename != "matlab_script.m" || all[2].Filename != "report.pdf" {
		t.Errorf("нарушен порядок поступления: %q, %q, %q",
			all[0].Filename, all[1].Filename, all[2].Filename)
	}
	if all[0].AgentAddress != "192.168.1.10" {
		t.Errorf("AgentAddress = %q, ожидается 192.168.1.10", all[0].AgentAddress)
	}

	// Поиск по подстроке затрагивает и имя, и путь
	got, err := svc.ListPending(ctx, "mat")
	if err != nil {
		t.Fatalf("ListPending(mat) error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("поиск 'mat': len = %d, ожидается 2", len(got))
	}

	got, _ = svc.ListPending(ctx, "user")
	if len(got) != 1 || got[0].Filename != "report.pdf" {
		t.Errorf("поиск 'user' по пути: получено %d записей", len(got))
	}

	got, _ = svc.ListPending(ctx, "nomatch")
	if len(got) != 0 {
		t.Errorf("поиск 'nomatch': len = %d, ожидается 0", len(got))
	}
}

// Осиротевшая pending-запись (агент исчез из реестра) всплывает
// как ErrIntegrity, а не молча пропадает из списка.
func TestFileApprovalService_ListPending_OrphanedRecord(t *testing.T) {
	ctx := context.Background()
	agents := newFakeAgentRepo()
	fileRepo := newFakeFileRepo(agents)
	agentSvc := NewAgentService(agents, testLogger())
	svc := NewFileApprovalService(fileRepo, agents, testLogger())

	a, _ := agentSvc.Register(ctx, "192.168.1.10")
	if _, err := svc.Submit(ctx, "a.txt", "/data/a.txt", a.ID); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Запись осиротела: агент пропал из реестра в обход FK
	agents.mu.Lock()
	delete(agents.agents, a.ID)
	agents.mu.Unlock()

	_, err := svc.ListPending(ctx, "")
	if !errors.Is(err, ErrIntegrity) {
		t.Errorf("ListPending() error = %v, ожидается ErrIntegrity", err)
	}
}

func TestFileApprovalService_Stats(t *testing.T) {
	ctx := context.Background()
	agents := newFakeAgentRepo()
	fileRepo := newFakeFileRepo(agents)
	agentSvc := NewAgentService(agents, testLogger())
	svc := NewFileApprovalService(fileRepo, agents, testLogger())

	a, _ := agentSvc.Register(ctx, "10.0.0.1")
	f1, _ := svc.Submit(ctx, "a.txt", "/a.txt", a.ID)
	f2, _ := svc.Submit(ctx, "b.txt", "/b.txt", a.ID)
	svc.Submit(ctx, "c.txt", "/c.txt", a.ID)

	svc.Approve(ctx, []int64{f1.ID})
	svc.Reject(ctx, []int64{f2.ID})

	counts, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if counts.Pending != 1 || counts.Approved != 1 || counts.Rejected != 1 {
		t.Errorf("Stats = %+v, ожидается по одной записи в каждом статусе", counts)
	}
}

func TestAgentMonitorService_RunOnce(t *testing.T) {
	ctx := context.Background()
	agents := newFakeAgentRepo()
	agentSvc := NewAgentService(agents, testLogger())

	stale, _ := agentSvc.Register(ctx, "10.0.0.1")
	fresh, _ := agentSvc.Register(ctx, "10.0.0.2")

	agentSvc.UpdateStatus(ctx, stale.ID, model.AgentStatusOnline, time.Now().Add(-10*time.Minute))
	agentSvc.UpdateStatus(ctx, fresh.ID, model.AgentStatusOnline, time.Now())

	monitor := NewAgentMonitorService(agents, 5*time.Minute, 30*time.Second, testLogger())
	monitor.RunOnce(ctx)

	got, _ := agents.GetByID(ctx, stale.ID)
	if got.Status != model.AgentStatusOffline {
		t.Errorf("устаревший агент: Status = %q, ожидается offline", got.Status)
	}
	got, _ = agents.GetByID(ctx, fresh.ID)
	if got.Status != model.AgentStatusOnline {
		t.Errorf("активный агент: Status = %q, ожидается online", got.Status)
	}
}
