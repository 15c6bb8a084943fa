package assistant

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/laviebeauty/lavie-platform/internal/booking"
	"github.com/laviebeauty/lavie-platform/internal/catalog"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

type stubLLM struct {
	replies  []string
	requests []LLMRequest
}

func (s *stubLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.requests = append(s.requests, req)
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return LLMResponse{Text: reply}, nil
}

type stubCatalogReader struct{}

func (stubCatalogReader) ListServices(ctx context.Context, salonID string) ([]catalog.Service, error) {
	return []catalog.Service{
		{ID: "svc-1", Name: "Corte Feminino", DurationMinutes: 60, PriceCents: 12000},
	}, nil
}

func (stubCatalogReader) ListProfessionals(ctx context.Context, salonID string) ([]catalog.Professional, error) {
	return []catalog.Professional{{ID: "pro-1", Name: "Amanda"}}, nil
}

type stubBooker struct {
	booked *booking.CreateRequest
	err    error
}

func (s *stubBooker) Book(ctx context.Context, salonID string, req *booking.CreateRequest) (*booking.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.booked = req
	return &booking.Booking{
		ID:             "bk-1",
		SalonID:        salonID,
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		Date:           req.Date,
		StartTime:      req.StartTime,
		Status:         booking.StatusConfirmed,
	}, nil
}

func newChatService(llm *stubLLM, booker *stubBooker, rdb *redis.Client) *Service {
	return NewService(llm, stubCatalogReader{}, booker, "La Vie Beauty",
		[]string{"09:00", "10:00", "11:00"}, time.UTC, logging.New("error"), ServiceOptions{
			Redis: rdb,
			Now:   func() time.Time { return time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC) },
		})
}

const bookReply = "Confirmo sua reserva!\n```json\n{\"action\":\"book\",\"serviceName\":\"Corte Feminino\",\"date\":\"2026-09-01\",\"time\":\"10:00\"}\n```"

func TestChatExecutesBookAction(t *testing.T) {
	llm := &stubLLM{replies: []string{bookReply}}
	booker := &stubBooker{}
	svc := newChatService(llm, booker, nil)

	resp, err := svc.Chat(context.Background(), "salon-1", &ChatRequest{
		ConversationID: "conv-1",
		Message:        "Quero cortar o cabelo amanhã às 10h",
		CustomerName:   "Mariana",
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if resp.Booking == nil || resp.Booking.ID != "bk-1" {
		t.Fatalf("expected a booking in the response, got %+v", resp.Booking)
	}
	if booker.booked.ServiceID != "svc-1" || booker.booked.ProfessionalID != "pro-1" {
		t.Fatalf("booking request not resolved from the catalog: %+v", booker.booked)
	}
	if strings.Contains(resp.Reply, "```") {
		t.Fatalf("reply must not leak the action block: %q", resp.Reply)
	}
}

func TestChatSlotTakenGetsFriendlyReply(t *testing.T) {
	llm := &stubLLM{replies: []string{bookReply}}
	booker := &stubBooker{err: booking.ErrSlotTaken}
	svc := newChatService(llm, booker, nil)

	resp, err := svc.Chat(context.Background(), "salon-1", &ChatRequest{ConversationID: "conv-1", Message: "quero às 10:00"})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if resp.Booking != nil {
		t.Fatal("lost slot must not report a booking")
	}
	if !strings.Contains(resp.Reply, "outro horário") {
		t.Fatalf("expected a reschedule suggestion, got %q", resp.Reply)
	}
}

func TestChatUnknownServiceFailsSoftly(t *testing.T) {
	llm := &stubLLM{replies: []string{"```json\n{\"action\":\"book\",\"serviceName\":\"Massagem\",\"date\":\"2026-09-01\",\"time\":\"10:00\"}\n```"}}
	booker := &stubBooker{}
	svc := newChatService(llm, booker, nil)

	resp, err := svc.Chat(context.Background(), "salon-1", &ChatRequest{ConversationID: "conv-1", Message: "quero massagem"})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if booker.booked != nil {
		t.Fatal("unknown service must not create a booking")
	}
	if !strings.Contains(resp.Reply, "Massagem") {
		t.Fatalf("expected the unknown service named in the reply, got %q", resp.Reply)
	}
}

func TestChatPersistsHistory(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	llm := &stubLLM{replies: []string{"Olá! Como posso ajudar?", "Temos 10:00 livre."}}
	svc := newChatService(llm, &stubBooker{}, rdb)

	if _, err := svc.Chat(context.Background(), "salon-1", &ChatRequest{ConversationID: "conv-1", Message: "Oi"}); err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if _, err := svc.Chat(context.Background(), "salon-1", &ChatRequest{ConversationID: "conv-1", Message: "Tem horário amanhã?"}); err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}

	second := llm.requests[1]
	if len(second.Messages) != 3 {
		t.Fatalf("expected replayed history on second turn, got %d messages", len(second.Messages))
	}
	if second.Messages[0].Content != "Oi" || second.Messages[1].Role != ChatRoleAssistant {
		t.Fatalf("unexpected history %+v", second.Messages)
	}
}
