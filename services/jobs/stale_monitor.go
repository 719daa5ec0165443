package jobs

import (
	"fmt"
	"log"

	"expedientes_app_go/config"
	"expedientes_app_go/models"
	"expedientes_app_go/services"
)

// RunStaleCheck recomputes the stale-case count from the current
// snapshot and refreshes the system notification for every active
// session. Because the notification is keyed, repeated runs with the
// same count change nothing; a changed count updates the single entry.
func RunStaleCheck(repo *services.CaseRepository, sessions *services.SessionRegistry, cfg *config.Config) {
	log.Println("Starting stale-case check...")

	today := services.Today()
	stale := services.StaleCases(repo.List(), today, cfg.StaleAfterDays)

	sessions.ForEachNotificationCenter(func(userID string, center *services.NotificationCenter) {
		if len(stale) == 0 {
			center.UpsertSystem("stale-cases", models.NotificationKindSuccess,
				"Sin expedientes rezagados",
				fmt.Sprintf("Todos los expedientes activos tienen movimiento en los últimos %d días.", cfg.StaleAfterDays))
			return
		}
		center.UpsertSystem("stale-cases", models.NotificationKindWarning,
			fmt.Sprintf("%d expediente(s) sin movimiento", len(stale)),
			fmt.Sprintf("Hay %d expediente(s) sin actuaciones en %d días o más.", len(stale), cfg.StaleAfterDays))
	})

	if len(stale) > 0 && cfg.DigestEmail != "" {
		email := services.BuildStaleDigestEmail(cfg.DigestEmail, stale, cfg.StaleAfterDays)
		services.SendEmailAsync(cfg, email)
	}

	log.Printf("Stale-case check completed (%d stale)", len(stale))
}
