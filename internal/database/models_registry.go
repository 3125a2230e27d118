package database

import "inkd/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Identity{},
		&models.User{},
		&models.Post{},
		&models.PortfolioItem{},
		&models.Message{},
		&models.Appointment{},
		&models.DailyHighlight{},
		&models.AssistantEvent{},
		&models.AssistantSettings{},
		&models.AssistantReport{},
	}
}
