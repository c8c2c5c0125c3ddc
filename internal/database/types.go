package database

import (
	"time"

	"github.com/kozaktomas/faceratio/internal/geometry"
)

// GlobalStatsID is the fixed identity of the statistics singleton.
const GlobalStatsID = "global_tracker"

// ScanTTL is how long a stored scan is kept before it expires.
const ScanTTL = 7 * 24 * time.Hour

// StoredScan is one completed analysis as persisted for its device.
// Only numeric results are stored; no imagery ever reaches the store.
type StoredScan struct {
	ID         string             `json:"id" bson:"_id"`
	DeviceID   string             `json:"deviceId" bson:"deviceId"`
	Ratios     geometry.RatioSet  `json:"ratios" bson:"ratios"`
	Scores     map[string]float64 `json:"scores,omitempty" bson:"scores,omitempty"`
	TotalScore float64            `json:"totalScore" bson:"totalScore"`
	FaceShape  string             `json:"faceShape" bson:"faceShape"`
	Match      *ScanMatch         `json:"match,omitempty" bson:"match,omitempty"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
	ExpireAt   time.Time          `json:"expireAt" bson:"expireAt"`
}

// ScanMatch is the top reference match recorded with a scan.
type ScanMatch struct {
	ReferenceID string `json:"referenceId" bson:"referenceId"`
	Name        string `json:"name" bson:"name"`
	Similarity  int    `json:"similarity" bson:"similarity"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// GlobalStats is the aggregate statistics singleton.
type GlobalStats struct {
	ID                string           `json:"-" bson:"_id"`
	TotalScans        int64            `json:"totalScans" bson:"totalScans"`
	ScoreSum          float64          `json:"scoreSum" bson:"scoreSum"`
	AverageScore      float64          `json:"averageScore" bson:"averageScore"`
	ShapeDistribution map[string]int64 `json:"shapeDistribution" bson:"shapeDistribution"`
	ScoreDistribution map[string]int64 `json:"scoreDistribution" bson:"scoreDistribution"`
	LastUpdated       time.Time        `json:"lastUpdated" bson:"lastUpdated"`
}

// NewGlobalStats returns a zeroed singleton with every known shape and
// bucket present.
func NewGlobalStats(shapes, buckets []string) *GlobalStats {
	s := &GlobalStats{
		ID:                GlobalStatsID,
		ShapeDistribution: make(map[string]int64, len(shapes)),
		ScoreDistribution: make(map[string]int64, len(buckets)),
	}
	for _, shape := range shapes {
		s.ShapeDistribution[shape] = 0
	}
	for _, b := range buckets {
		s.ScoreDistribution[b] = 0
	}
	return s
}

// ReferenceMetadata describes a reference face.
type ReferenceMetadata struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
	Advice      string `json:"advice,omitempty" yaml:"advice"`
	ImageURL    string `json:"imageUrl,omitempty" yaml:"image_url"`
	Category    string `json:"category,omitempty" yaml:"category"`
	Era         string `json:"era,omitempty" yaml:"era"`
}

// ReferenceVector is one precomputed reference entry in the similarity index.
type ReferenceVector struct {
	ID       string
	Values   []float32
	Metadata ReferenceMetadata
}

// Neighbor is one similarity query hit. Score is cosine similarity.
type Neighbor struct {
	ID       string
	Score    float64
	Metadata ReferenceMetadata
}
