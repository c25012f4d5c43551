package workflow

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/deverp-client/internal/testutil"
	"github.com/Sternrassler/deverp-client/pkg/client"
)

type recordingNotifier struct {
	mu      sync.Mutex
	success []string
	danger  []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.success = append(n.success, msg)
}

func (n *recordingNotifier) Danger(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.danger = append(n.danger, msg)
}

func newTestService(t *testing.T, backend *testutil.MockBackend) (*Service, *recordingNotifier) {
	t.Helper()
	cfg := client.DefaultConfig(backend.URL(), "deverp-test/1.0")
	cfg.Timeout = 2 * time.Second
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })

	n := &recordingNotifier{}
	return NewService(c, n), n
}

func pendingRequest(id int) testutil.MockRequest {
	return testutil.MockRequest{
		ID:            id,
		RequesterName: "Asha",
		ItemName:      "Gold wire",
		Quantity:      5,
		Unit:          "m",
		CreatedAt:     "2024-03-01 10:00",
		Status:        "pending",
		Priority:      "High",
		History:       []map[string]string{{"action": "created", "user": "asha", "timestamp": "2024-03-01 10:00"}},
		CanApprove:    true,
		CanDelete:     true,
	}
}

func TestDetails(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()
	backend.AddRequest(pendingRequest(4))

	svc, n := newTestService(t, backend)

	req, err := svc.Details(context.Background(), 4)
	if err != nil {
		t.Fatalf("Details() error = %v", err)
	}
	if req.ID != 4 || req.RequesterName != "Asha" || req.QuantityLabel() != "5 m" {
		t.Errorf("Details() = %+v", req)
	}
	if len(req.History) != 1 || req.History[0].Action != "created" {
		t.Errorf("History = %+v", req.History)
	}
	if req.DepartmentLabel() != "N/A" {
		t.Errorf("DepartmentLabel() = %q, want N/A", req.DepartmentLabel())
	}
	if len(n.danger) != 0 {
		t.Errorf("unexpected notifications %v", n.danger)
	}
}

func TestDetails_NotFound(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()

	svc, n := newTestService(t, backend)

	if _, err := svc.Details(context.Background(), 99); err == nil {
		t.Fatal("Details() error = nil, want failure")
	}
	if len(n.danger) != 1 || n.danger[0] != "request not found" {
		t.Errorf("danger = %v, want backend message", n.danger)
	}
}

func TestPerform_Approve(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()
	backend.AddRequest(pendingRequest(1))

	svc, n := newTestService(t, backend)

	res, err := svc.Perform(context.Background(), 1, ActionApprove, "")
	if err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if res.Message != "Request approved" {
		t.Errorf("Message = %q, want %q", res.Message, "Request approved")
	}
	if len(n.success) != 1 || n.success[0] != "Request approved" {
		t.Errorf("success = %v", n.success)
	}

	stored, _ := backend.Request(1)
	if stored.Status != StatusApproved {
		t.Errorf("Status = %q, want approved", stored.Status)
	}
	body := backend.LastActionBody()
	if body["action"] != "approve" {
		t.Errorf("body action = %q, want approve", body["action"])
	}
	if _, ok := body["comment"]; !ok {
		t.Error("body has no comment field")
	}
}

func TestPerform_RejectWithComment(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()
	backend.AddRequest(pendingRequest(2))

	svc, _ := newTestService(t, backend)

	if _, err := svc.Perform(context.Background(), 2, ActionReject, "out of budget"); err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	stored, _ := backend.Request(2)
	if stored.Status != StatusRejected {
		t.Errorf("Status = %q, want rejected", stored.Status)
	}
	last := stored.History[len(stored.History)-1]
	if last["comment"] != "out of budget" {
		t.Errorf("history comment = %q", last["comment"])
	}
}

func TestPerform_Delete(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()
	backend.AddRequest(pendingRequest(3))

	var method string
	var length int64
	backend.SetHandler(testutil.RequestsPath+"3/", func(w http.ResponseWriter, r *http.Request) {
		method, length = r.Method, r.ContentLength
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true}`))
	})

	svc, n := newTestService(t, backend)

	if _, err := svc.Perform(context.Background(), 3, ActionDelete, "ignored"); err != nil {
		t.Fatalf("Perform() error = %v", err)
	}
	if method != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", method)
	}
	if length != 0 {
		t.Errorf("ContentLength = %d, want 0", length)
	}
	if len(n.success) != 1 || n.success[0] != "Action completed successfully" {
		t.Errorf("success = %v, want default message", n.success)
	}
}

func TestPerform_Refused(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()
	req := pendingRequest(5)
	req.Status = "fulfilled"
	backend.AddRequest(req)

	svc, n := newTestService(t, backend)

	_, err := svc.Perform(context.Background(), 5, ActionApprove, "")
	if !errors.Is(err, client.ErrUnsuccessful) {
		t.Fatalf("Perform() error = %v, want ErrUnsuccessful", err)
	}
	if len(n.danger) != 1 || n.danger[0] != "Cannot approve a fulfilled request" {
		t.Errorf("danger = %v", n.danger)
	}
	if len(n.success) != 0 {
		t.Errorf("success = %v, want none", n.success)
	}
}

func TestPerform_FailureMessages(t *testing.T) {
	tests := []struct {
		name     string
		response testutil.MockResponse
		want     string
	}{
		{
			name:     "server error without message",
			response: testutil.MockResponse{StatusCode: http.StatusInternalServerError, Body: `{"success": false}`},
			want:     "Error performing action",
		},
		{
			name:     "forbidden with message",
			response: testutil.MockResponse{StatusCode: http.StatusForbidden, Body: `{"success": false, "message": "Permission denied"}`},
			want:     "Permission denied",
		},
		{
			name:     "not json",
			response: testutil.NewMalformedResponse(),
			want:     "An error occurred while performing the action",
		},
		{
			name: "proxy error page",
			response: testutil.MockResponse{
				StatusCode: http.StatusBadGateway,
				Body:       "<html><body>Bad Gateway</body></html>",
				Headers:    map[string]string{"Content-Type": "text/html"},
			},
			want: "An error occurred while performing the action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewMockBackend()
			defer backend.Close()
			backend.SetResponse(testutil.RequestsPath+"8/", tt.response)

			svc, n := newTestService(t, backend)

			if _, err := svc.Perform(context.Background(), 8, ActionFulfill, ""); err == nil {
				t.Fatal("Perform() error = nil, want failure")
			}
			if len(n.danger) != 1 || n.danger[0] != tt.want {
				t.Errorf("danger = %v, want [%q]", n.danger, tt.want)
			}
		})
	}
}

func TestPerform_Unreachable(t *testing.T) {
	backend := testutil.NewMockBackend()
	svc, n := newTestService(t, backend)
	backend.Close()

	if _, err := svc.Perform(context.Background(), 1, ActionApprove, ""); err == nil {
		t.Fatal("Perform() error = nil, want failure")
	}
	if len(n.danger) != 1 || n.danger[0] != "An error occurred while performing the action" {
		t.Errorf("danger = %v", n.danger)
	}
}

func TestPerform_CancelledIsSilent(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()
	backend.SetResponse(testutil.RequestsPath+"1/", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"success": true}`,
		Delay:      500 * time.Millisecond,
	})

	svc, n := newTestService(t, backend)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := svc.Perform(ctx, 1, ActionApprove, ""); err == nil {
		t.Fatal("Perform() error = nil, want cancellation")
	}
	if len(n.danger) != 0 {
		t.Errorf("danger = %v, want none after cancellation", n.danger)
	}
}

func TestPerform_UnknownAction(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()

	svc, _ := newTestService(t, backend)

	if _, err := svc.Perform(context.Background(), 1, Action("archive"), ""); err == nil {
		t.Fatal("Perform() error = nil, want unknown action")
	}
	if backend.RequestCount() != 0 {
		t.Errorf("RequestCount() = %d, want 0", backend.RequestCount())
	}
}

func TestCreate(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()

	svc, n := newTestService(t, backend)

	res, err := svc.Create(context.Background(), NewRequest{ItemID: "Silver sheet", Quantity: 3, Priority: "Low"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if res.ID == 0 {
		t.Error("ID = 0, want assigned id")
	}
	stored, ok := backend.Request(res.ID)
	if !ok || stored.Status != StatusPending || stored.Quantity != 3 {
		t.Errorf("stored = %+v, ok %v", stored, ok)
	}
	if len(n.success) != 1 || n.success[0] != "Request submitted successfully" {
		t.Errorf("success = %v", n.success)
	}
}

func TestCreate_Invalid(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()

	svc, n := newTestService(t, backend)

	_, err := svc.Create(context.Background(), NewRequest{ItemID: "x"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Create() error = %v, want ValidationError", err)
	}
	if backend.RequestCount() != 0 {
		t.Errorf("RequestCount() = %d, want 0", backend.RequestCount())
	}
	if len(n.danger) != 1 || n.danger[0] != "Please enter a valid quantity" {
		t.Errorf("danger = %v", n.danger)
	}
}
