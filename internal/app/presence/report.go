package presence

import (
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/Televisit/internal/domain"
)

const (
	stampLayout = "2006-01-02 15:04:05"
	clockLayout = "15:04:05"
)

// Duration is the span from the first connect to the last disconnect.
func Duration(sess *domain.PresenceSession) time.Duration {
	start, end := sess.Span()
	if end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

// FormatDuration renders d as whole minutes and seconds, e.g. "12m 5s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}

// FormatReport renders the completion text sent to operations.
func FormatReport(sess *domain.PresenceSession, doctor, patient *domain.Participant, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder

	b.WriteString("📹 *VIDEO CALL COMPLETED*\n")
	fmt.Fprintf(&b, "📅 %s\n\n", now.In(loc).Format(stampLayout))

	b.WriteString("🏥 *ROOM*\n")
	fmt.Fprintf(&b, "• ID: %s\n", sess.RoomName)
	fmt.Fprintf(&b, "• Duration: %s\n\n", FormatDuration(Duration(sess)))

	b.WriteString("⚕️ *DOCTOR*\n")
	fmt.Fprintf(&b, "• Code: %s\n", strings.TrimPrefix(doctor.Identity, "Dr. "))
	writeTimes(&b, doctor, loc)

	b.WriteString("👤 *PATIENT*\n")
	fmt.Fprintf(&b, "• Name: %s\n", patient.Identity)
	writeTimes(&b, patient, loc)

	b.WriteString("✅ Session finished successfully")
	return b.String()
}

func writeTimes(b *strings.Builder, p *domain.Participant, loc *time.Location) {
	left := "N/A"
	if p.DisconnectedAt != nil {
		left = p.DisconnectedAt.In(loc).Format(clockLayout)
	}
	fmt.Fprintf(b, "• Connected: %s\n", p.ConnectedAt.In(loc).Format(clockLayout))
	fmt.Fprintf(b, "• Disconnected: %s\n\n", left)
}
