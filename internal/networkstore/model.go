package networkstore

import "time"

// AreaModel is the GORM row for coverage_areas.
type AreaModel struct {
	ID          string `gorm:"type:varchar(64);primaryKey"`
	DisplayName string `gorm:"type:varchar(255);uniqueIndex;not null"`

	Boundary GormGeometry `gorm:"column:boundary;type:jsonb"`

	SegmentLengthM  float64
	MatchBufferM    float64
	MinMatchLengthM float64

	State string `gorm:"type:varchar(32);index"`

	TotalLengthM       float64
	DriveableLengthM   float64
	DrivenLengthM      float64
	CoveragePercentage float64
	TotalSegments      int
	DriveableSegments  int
	StreetTypesJSON    []byte `gorm:"column:street_types;type:jsonb"`

	StreetsGeoJSONArtifactID string
	OptimalRouteGeneratedAt  *time.Time
	LastCoveredAt            *time.Time
	NeedsStatsUpdate         bool
	LastError                string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name rather than relying on GORM pluralization.
func (AreaModel) TableName() string { return "coverage_areas" }

// SegmentModel is the GORM row for street_segments.
type SegmentModel struct {
	SegmentID string `gorm:"type:varchar(128);primaryKey"`
	AreaName  string `gorm:"type:varchar(255);index;not null"`

	Geometry GormGeometry `gorm:"column:geometry;type:jsonb"`

	HighwayTag     string `gorm:"type:varchar(64);index"`
	StreetName     string `gorm:"type:varchar(255)"`
	SegmentLengthM float64
	Oneway         bool

	Driven      bool `gorm:"index"`
	Undriveable bool `gorm:"index"`

	ManualDriven      bool
	ManualUndriven    bool
	ManualUndriveable bool
	ManualDriveable   bool

	LastManualUpdate *time.Time
	FirstDrivenAt    *time.Time
	LastDrivenAt     *time.Time
}

func (SegmentModel) TableName() string { return "street_segments" }

// ContributionModel is the GORM row for segment_trip_contributions.
type ContributionModel struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	SegmentID string `gorm:"type:varchar(128);index;not null"`
	TripID    string `gorm:"type:varchar(128);index;not null"`
	MatchedAt time.Time
}

func (ContributionModel) TableName() string { return "segment_trip_contributions" }

// TaskModel is the GORM row for task_progress.
type TaskModel struct {
	TaskID          string `gorm:"type:varchar(64);primaryKey"`
	AreaDisplayName string `gorm:"type:varchar(255);index"`
	Stage           string `gorm:"type:varchar(32);index"`
	ProgressPct     float64
	Message         string
	Error           string
	CancelRequested bool

	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt *time.Time
}

func (TaskModel) TableName() string { return "task_progress" }

// TripModel is the GORM row for the externally-ingested trips table. The
// coverage engine owns only the matched-geometry write-back columns; the
// rest is populated by the telematics ingestion pipeline (out of scope).
type TripModel struct {
	TripID string `gorm:"type:varchar(64);primaryKey"`

	StartTime time.Time `gorm:"index"`
	EndTime   time.Time

	GPS            GormGeometry `gorm:"column:gps;type:jsonb"`
	TimestampsJSON []byte       `gorm:"column:timestamps;type:jsonb"`

	MatchedGPS  GormGeometry `gorm:"column:matched_gps;type:jsonb"`
	MatchStatus string       `gorm:"type:varchar(64)"`
	MatchedAt   *time.Time   `gorm:"index"`
}

func (TripModel) TableName() string { return "trips" }

// RouteModel is the GORM row for optimal_routes: the full RouteSolver
// output for an area, one row per area (area holds only a weak
// RouteRef{GeneratedAt} handle, spec §3).
type RouteModel struct {
	AreaDisplayName string `gorm:"type:varchar(255);primaryKey"`

	Coordinates GormGeometry `gorm:"column:coordinates;type:jsonb"`
	StartPoint  GormGeometry `gorm:"column:start_point;type:jsonb"`

	TotalDistanceM    float64
	RequiredDistanceM float64
	DeadheadDistanceM float64
	DeadheadPct       float64
	SegmentCount      int

	GeneratedAt time.Time
}

func (RouteModel) TableName() string { return "optimal_routes" }
