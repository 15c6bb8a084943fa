package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/laviebeauty/lavie-platform/internal/booking"
	"github.com/laviebeauty/lavie-platform/internal/catalog"
	"github.com/laviebeauty/lavie-platform/internal/salon"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

// SalonReader resolves the tenant so the persona greets with its real name.
type SalonReader interface {
	Get(ctx context.Context, id string) (*salon.Salon, error)
}

const historyLimit = 40

// CatalogReader lists the salon's services and professionals for the prompt
// and for resolving a booked service by name.
type CatalogReader interface {
	ListServices(ctx context.Context, salonID string) ([]catalog.Service, error)
	ListProfessionals(ctx context.Context, salonID string) ([]catalog.Professional, error)
}

// Booker is the booking write path the assistant hands confirmed choices to.
type Booker interface {
	Book(ctx context.Context, salonID string, req *booking.CreateRequest) (*booking.Booking, error)
}

// ChatRequest is one customer turn.
type ChatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	CustomerName   string `json:"customerName"`
	CustomerEmail  string `json:"customerEmail"`
	CustomerPhone  string `json:"customerPhone"`
}

// ChatResponse is the assistant's reply, plus the booking when one was made.
type ChatResponse struct {
	ConversationID string           `json:"conversationId"`
	Reply          string           `json:"reply"`
	Booking        *booking.Booking `json:"booking,omitempty"`
}

// Service runs the Juliana receptionist: it drives the LLM conversation and
// executes the book action the model emits.
type Service struct {
	llm       LLMClient
	catalog   CatalogReader
	booker    Booker
	history   *historyStore
	salons    SalonReader
	salonName string
	slotTimes []string
	location  *time.Location
	now       func() time.Time
	logger    *logging.Logger
	tracer    trace.Tracer
}

// ServiceOptions configures optional collaborators.
type ServiceOptions struct {
	Redis  *redis.Client
	Salons SalonReader
	Now    func() time.Time
	Tracer trace.Tracer
}

func NewService(llm LLMClient, catalogReader CatalogReader, booker Booker, salonName string, slotTimes []string, location *time.Location, logger *logging.Logger, opts ServiceOptions) *Service {
	if llm == nil {
		panic("assistant: llm client cannot be nil")
	}
	if catalogReader == nil {
		panic("assistant: catalog reader cannot be nil")
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.New("info")
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("lavie.internal.assistant")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		llm:       llm,
		catalog:   catalogReader,
		booker:    booker,
		history:   newHistoryStore(opts.Redis, tracer),
		salons:    opts.Salons,
		salonName: salonName,
		slotTimes: slotTimes,
		location:  location,
		now:       now,
		logger:    logger,
		tracer:    tracer,
	}
}

// Chat runs one turn of the conversation.
func (s *Service) Chat(ctx context.Context, salonID string, req *ChatRequest) (*ChatResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assistant.chat", trace.WithAttributes(
		attribute.String("salon.id", salonID),
	))
	defer span.End()

	if req.Message == "" {
		return nil, errors.New("assistant: message is required")
	}
	if req.ConversationID == "" {
		return nil, errors.New("assistant: conversationId is required")
	}

	services, err := s.catalog.ListServices(ctx, salonID)
	if err != nil {
		return nil, fmt.Errorf("assistant: list services: %w", err)
	}

	history, err := s.history.Load(ctx, salonID, req.ConversationID)
	if err != nil {
		// A lost history degrades to a fresh conversation.
		s.logger.Warn("conversation history unavailable", "conversation_id", req.ConversationID, "error", err)
		history = nil
	}
	history = append(history, ChatMessage{Role: ChatRoleUser, Content: req.Message})
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	salonName := s.salonName
	if s.salons != nil {
		if sal, err := s.salons.Get(ctx, salonID); err == nil && sal.Name != "" {
			salonName = sal.Name
		}
	}

	resp, err := s.llm.Complete(ctx, LLMRequest{
		System:      []string{SystemPrompt(salonName, services, s.slotTimes, s.now().In(s.location))},
		Messages:    history,
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("assistant: completion: %w", err)
	}

	reply, action := ExtractAction(resp.Text)
	out := &ChatResponse{ConversationID: req.ConversationID, Reply: reply}

	if action != nil {
		booked, bookReply := s.executeBook(ctx, salonID, req, services, action)
		out.Booking = booked
		if bookReply != "" {
			out.Reply = bookReply
		}
	}

	history = append(history, ChatMessage{Role: ChatRoleAssistant, Content: out.Reply})
	if err := s.history.Save(ctx, salonID, req.ConversationID, history); err != nil {
		s.logger.Warn("cannot persist conversation history", "conversation_id", req.ConversationID, "error", err)
	}
	return out, nil
}

// executeBook turns a parsed action into a booking. The returned reply, when
// non-empty, replaces the model's prose so the customer never sees a
// confirmation for a booking that failed.
func (s *Service) executeBook(ctx context.Context, salonID string, req *ChatRequest, services []catalog.Service, action *BookAction) (*booking.Booking, string) {
	if s.booker == nil {
		return nil, ""
	}

	svc, ok := catalog.FindServiceByName(services, action.ServiceName)
	if !ok {
		s.logger.Warn("model named an unknown service", "service_name", action.ServiceName, "salon_id", salonID)
		return nil, fmt.Sprintf("Desculpe, não encontrei o serviço %q no nosso catálogo. Pode escolher um da nossa lista?", action.ServiceName)
	}

	pros, err := s.catalog.ListProfessionals(ctx, salonID)
	if err != nil || len(pros) == 0 {
		s.logger.Error("no professional available for booking", "salon_id", salonID, "error", err)
		return nil, "Desculpe, não consegui concluir a reserva agora. Pode tentar novamente em instantes?"
	}

	customerName := req.CustomerName
	if customerName == "" {
		customerName = "Cliente do chat"
	}

	booked, err := s.booker.Book(ctx, salonID, &booking.CreateRequest{
		ProfessionalID: pros[0].ID,
		ServiceID:      svc.ID,
		CustomerName:   customerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		Date:           action.Date,
		StartTime:      action.Time,
		Notes:          fmt.Sprintf("Reserva via assistente, conversa %s", req.ConversationID),
	})
	if err != nil {
		if errors.Is(err, booking.ErrSlotTaken) {
			return nil, fmt.Sprintf("Poxa, o horário de %s no dia %s acabou de ser reservado. Quer escolher outro horário?", action.Time, action.Date)
		}
		s.logger.Error("assistant booking failed", "salon_id", salonID, "error", err)
		return nil, "Desculpe, não consegui concluir a reserva agora. Pode tentar novamente em instantes?"
	}

	s.logger.Info("assistant booked a slot",
		"salon_id", salonID, "booking_id", booked.ID, "date", booked.Date, "start_time", booked.StartTime)
	return booked, fmt.Sprintf("Prontinho! Sua reserva de %s para %s às %s está confirmada. Até lá! ✨", svc.Name, booked.Date, booked.StartTime)
}
