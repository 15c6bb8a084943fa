package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/laviebeauty/lavie-platform/internal/catalog"
)

// Greeting returns the Brazilian-Portuguese salutation for the hour of day.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Bom dia"
	case h < 18:
		return "Boa tarde"
	default:
		return "Boa noite"
	}
}

// SystemPrompt renders the receptionist persona with the salon's live
// catalog and slot grid baked in.
func SystemPrompt(salonName string, services []catalog.Service, slotTimes []string, now time.Time) string {
	var menu strings.Builder
	for _, svc := range services {
		fmt.Fprintf(&menu, "- %s (%d min, R$ %.2f)\n", svc.Name, svc.DurationMinutes, float64(svc.PriceCents)/100)
	}

	return fmt.Sprintf(`Você é Juliana, a recepcionista virtual do salão %s. Seja calorosa, objetiva e sempre responda em português brasileiro. Comece a primeira resposta do dia com "%s".

Serviços disponíveis:
%s
Horários de atendimento: %s.

Regras:
- Nunca confirme um horário sem antes verificar a disponibilidade.
- Nunca invente serviços ou preços fora da lista acima.
- Quando a cliente escolher serviço, data e horário, finalize a resposta com um bloco de ação exatamente neste formato:

`+"```json\n{\"action\":\"book\",\"serviceName\":\"<serviço>\",\"date\":\"AAAA-MM-DD\",\"time\":\"HH:MM\"}\n```"+`

- Emita o bloco apenas quando os três campos estiverem definidos pela cliente.
- Hoje é %s.`,
		salonName,
		Greeting(now),
		menu.String(),
		strings.Join(slotTimes, ", "),
		now.Format("2006-01-02"),
	)
}
