package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/laviebeauty/lavie-platform/internal/booking"
	"github.com/laviebeauty/lavie-platform/pkg/logging"
)

// Service composes the transactional emails the platform sends.
type Service struct {
	sender  EmailSender
	baseURL string
	logger  *logging.Logger
}

func NewService(sender EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{sender: sender, logger: logger}
}

// WithBaseURL sets the public site URL referenced from customer emails.
func (s *Service) WithBaseURL(u string) *Service {
	s.baseURL = strings.TrimRight(u, "/")
	return s
}

// BookingConfirmed emails the customer their confirmed appointment.
func (s *Service) BookingConfirmed(ctx context.Context, b *booking.Booking, serviceName, professionalName string) error {
	if s.sender == nil || b.CustomerEmail == "" {
		return nil
	}
	body := fmt.Sprintf(
		"Olá %s!\n\nSua reserva está confirmada:\n\nServiço: %s\nProfissional: %s\nData: %s\nHorário: %s",
		b.CustomerName, serviceName, professionalName, b.Date, b.StartTime,
	)
	if s.baseURL != "" {
		body += fmt.Sprintf("\n\nPrecisa remarcar? Fale com a gente em %s", s.baseURL)
	}
	body += "\n\nAté breve!\nEquipe La Vie Beauty"
	msg := EmailMessage{
		To:      b.CustomerEmail,
		ToName:  b.CustomerName,
		Subject: fmt.Sprintf("Reserva confirmada: %s em %s às %s", serviceName, b.Date, b.StartTime),
		Body:    body,
	}
	return s.sender.Send(ctx, msg)
}

// CalendarBroken alerts the salon owner that availability is degraded
// because the professional's calendar is unreachable.
func (s *Service) CalendarBroken(ctx context.Context, ownerEmail, professionalName, reason string) error {
	if s.sender == nil || ownerEmail == "" {
		return nil
	}
	msg := EmailMessage{
		To:      ownerEmail,
		Subject: fmt.Sprintf("Agenda de %s indisponível", professionalName),
		Body: fmt.Sprintf(
			"A agenda do Google de %s está inacessível (%s). Enquanto isso, nenhum horário é oferecido para essa profissional.\n\nVerifique o compartilhamento do calendário com a conta de serviço.",
			professionalName, reason,
		),
	}
	return s.sender.Send(ctx, msg)
}
