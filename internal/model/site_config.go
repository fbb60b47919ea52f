package model

import "time"

// SiteConfigID is the well-known primary key of the singleton config row.
// Reads and writes always address this id, never "every row".
const SiteConfigID = "site"

// SiteConfig is the singleton `site_config` row holding the shared gate
// secret and the optional background music URL.
type SiteConfig struct {
	ID           string    // site_config.id (always SiteConfigID)
	SitePassword string    // site_config.site_password
	MusicURL     *string   // site_config.music_url (nullable)
	UpdatedAt    time.Time // site_config.updated_at
}
