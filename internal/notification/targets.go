package notification

import (
	"github.com/rescuedev/rescue-api/internal/fault"
	"github.com/rescuedev/rescue-api/internal/models"
	"github.com/rescuedev/rescue-api/internal/repository"
)

// TargetSet is the fan-out scope computed for a new alert: the
// phone-reachable users at the site plus the routing topics of every
// eligible device.
type TargetSet struct {
	PhoneTargets []models.NotificationTarget `json:"phone_targets"`
	FanoutTopics []string                    `json:"fanout_topics"`
}

// TargetResolver computes notification targets for a company+site.
type TargetResolver struct {
	users    repository.UserRepository
	hardware repository.HardwareRepository
}

func NewTargetResolver(users repository.UserRepository, hardware repository.HardwareRepository) *TargetResolver {
	return &TargetResolver{users: users, hardware: hardware}
}

// Resolve returns the users in scope with a phone on file and the
// topics of active non-button devices at the site, excluding the
// reporting device itself. Both booleans on a target default to false
// unless the user is the creator of the alert.
func (r *TargetResolver) Resolve(company models.Company, site, reporterHardwareName, creatorUserID string) (TargetSet, error) {
	users, err := r.users.FindPhoneableByCompanyAndSite(company.Name, site)
	if err != nil {
		return TargetSet{}, fault.Wrap(err, fault.KindUnexpected, "user lookup failed")
	}

	targets := make([]models.NotificationTarget, 0, len(users))
	for _, user := range users {
		targets = append(targets, models.NotificationTarget{
			UserID:    user.ID,
			Name:      user.Name,
			Phone:     user.Phone,
			Available: creatorUserID != "" && user.ID == creatorUserID,
		})
	}

	devices, err := r.hardware.ListActiveByCompanySite(company.ID, site)
	if err != nil {
		return TargetSet{}, fault.Wrap(err, fault.KindUnexpected, "hardware lookup failed")
	}

	topics := make([]string, 0, len(devices))
	for _, device := range devices {
		// Buttons originate alerts but never receive them, and the
		// reporting device does not notify itself.
		if device.IsButton() || device.Name == reporterHardwareName {
			continue
		}
		topics = append(topics, device.Topic)
	}

	return TargetSet{PhoneTargets: targets, FanoutTopics: topics}, nil
}
