package types

import (
	"time"
)

// MaxPageLimit is the largest page the provider serves in reports.list.
const MaxPageLimit = 20

// Filters narrows reports.list. Generation dates accept a time.Time or a
// time.Duration relative to the moment of sending.
type Filters struct {
	UUIDs              []string
	AutoIndexFrom      *int
	AutoIndexTo        *int
	GenerationDateFrom any
	GenerationDateTo   any
	Stages             []string
	TagsID             []string
}

func (f *Filters) MarshalParams() map[string]any {
	return map[string]any{
		"uuids":                f.UUIDs,
		"auto_index_from":      f.AutoIndexFrom,
		"auto_index_to":        f.AutoIndexTo,
		"generation_date_from": f.GenerationDateFrom,
		"generation_date_to":   f.GenerationDateTo,
		"stages":               f.Stages,
		"tags_id":              f.TagsID,
	}
}

// SortOrder is asc or desc.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

type Sort struct {
	Key   string    `json:"key"`
	Order SortOrder `json:"order"`
}

func (s *Sort) MarshalParams() map[string]any {
	return map[string]any{"key": s.Key, "order": string(s.Order)}
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (p *Pagination) MarshalParams() map[string]any {
	return map[string]any{"page": p.Page, "limit": p.Limit}
}

type Query struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type BaseStatus struct {
	State       string `json:"state"`
	BlockStatus string `json:"block_status"`
	Value       int    `json:"value"`
}

// BaseReport is one entry of reports.list.
type BaseReport struct {
	UUID                string      `json:"uuid"`
	Query               *Query      `json:"query"`
	BrandNameOriginal   *string     `json:"brand_name_original"`
	RegNum              *string     `json:"reg_num"`
	Year                *int        `json:"year"`
	VIN                 *string     `json:"vin"`
	Body                *string     `json:"body"`
	Stage               string      `json:"stage"`
	AutoIndex           int         `json:"auto_index"`
	TagsIDs             []any       `json:"tags_ids"`
	AdditionalBlocks    []any       `json:"additional_blocks"`
	IsReady             bool        `json:"is_ready"`
	IsCompleted         bool        `json:"is_completed"`
	Accidents           *BaseStatus `json:"accidents"`
	Restrictions        *BaseStatus `json:"restrictions"`
	UsedInTaxi          *BaseStatus `json:"used_in_taxi"`
	Stealings           *BaseStatus `json:"stealings"`
	Ownerships          *BaseStatus `json:"ownerships"`
	Exploitations       *BaseStatus `json:"exploitations"`
	Mileages            *BaseStatus `json:"mileages"`
	Repairs             *BaseStatus `json:"repairs"`
	Pledges             *BaseStatus `json:"pledges"`
	MaxWaitToReadyTime  *int        `json:"max_wait_to_ready_time"`
	GenerationStartTime *string     `json:"generation_start_time"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// Reports is the result of reports.list.
type Reports struct {
	Pagination  *Pagination  `json:"pagination"`
	ReportsList []BaseReport `json:"reports_list"`
}
