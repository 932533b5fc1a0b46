package domain

import "time"

// Gender values accepted on profiles.
type Gender string

const (
	GenderMale      Gender = "male"
	GenderFemale    Gender = "female"
	GenderUndefined Gender = "undefined"
)

// HealthDetails carries the user's health measurements.
type HealthDetails struct {
	DiabeticType  string  `json:"diabetic_type,omitempty"`
	CurrentWeight float64 `json:"current_weight,omitempty"`
	Height        float64 `json:"height,omitempty"`
}

// DietaryPreferences drive meal selection.
type DietaryPreferences struct {
	PreferredDietType string   `json:"preferred_diet_type,omitempty"`
	FoodAllergies     []string `json:"food_allergies"`
	FoodsToAvoid      []string `json:"foods_to_avoid"`
	FavoriteFoods     []string `json:"favorite_foods"`
}

// Customizations holds reminder and notification settings.
type Customizations struct {
	MealReminderPreference bool   `json:"meal_reminder_preference"`
	PreferredTimeForDiet   string `json:"preferred_time_for_diet,omitempty"`
	NotificationPreference string `json:"notification_preference,omitempty"`
}

// User is the stored account record. PasswordHash never leaves the server.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Gender       Gender
	PhoneNumber  string
	IsVerified   bool
	Health       HealthDetails
	Diet         DietaryPreferences
	Preferences  Customizations
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the user's session identity.
func (u *User) Identity() Identity {
	return Identity(u.ID)
}

// Snapshot builds the full session snapshot for the user.
func (u *User) Snapshot() *Session {
	diet := u.Diet
	diet.FoodAllergies = nonNil(diet.FoodAllergies)
	diet.FoodsToAvoid = nonNil(diet.FoodsToAvoid)
	diet.FavoriteFoods = nonNil(diet.FavoriteFoods)

	return &Session{
		ID:             u.Identity(),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		Gender:         u.Gender,
		PhoneNumber:    u.PhoneNumber,
		IsVerified:     u.IsVerified,
		Health:         u.Health,
		Diet:           diet,
		Customizations: u.Preferences,
		UpdatedAt:      u.UpdatedAt,
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return append([]string(nil), items...)
}
