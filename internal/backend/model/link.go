package model

import "time"

// Link is the deep-link record stored in Postgres. CustomParams holds the
// ordered key/value pairs as a JSON array; order matters because lookup is
// first-match-wins on the client side.
type Link struct {
	ID           string    `db:"id" gorm:"primaryKey;size:36"`
	ShortID      string    `db:"short_id" gorm:"uniqueIndex;size:32;not null"`
	OriginalURL  string    `db:"original_url" gorm:"type:text;not null"`
	TargetURL    string    `db:"target_url" gorm:"type:text"`
	AppURL       string    `db:"app_url" gorm:"type:text"`
	Platform     string    `db:"platform" gorm:"size:16"`
	Title        string    `db:"title" gorm:"size:255"`
	Description  string    `db:"description" gorm:"type:text"`
	CustomParams string    `db:"custom_params" gorm:"type:jsonb"`
	UTMSource    string    `db:"utm_source" gorm:"size:255"`
	UTMMedium    string    `db:"utm_medium" gorm:"size:255"`
	UTMCampaign  string    `db:"utm_campaign" gorm:"size:255"`
	UTMTerm      string    `db:"utm_term" gorm:"size:255"`
	UTMContent   string    `db:"utm_content" gorm:"size:255"`
	Resolutions  int64     `db:"resolutions" gorm:"not null;default:0"`
	CreatedAt    time.Time `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `db:"updated_at" gorm:"autoUpdateTime"`
}
