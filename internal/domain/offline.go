package domain

import "time"

// OfflineChapter décrit une sourate dont l'audio a été préchargé sur disque.
type OfflineChapter struct {
	Chapter   int       `json:"chapter"`
	Reciter   string    `json:"reciter"`
	Verses    int       `json:"verses"`
	Directory string    `json:"directory"`
	UpdatedAt time.Time `json:"updatedAt"`
}
