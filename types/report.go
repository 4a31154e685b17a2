package types

import (
	"encoding/json"
	"strings"
	"time"
)

// ReportURI is the web page prefix of a report.
const ReportURI = "https://profi.avtocod.ru/report/"

// Report is the result of report.get.
type Report struct {
	UUID                string    `json:"uuid"`
	ClientUUID          *string   `json:"client_uuid"`
	Content             *Content  `json:"content"`
	IsReady             bool      `json:"is_ready"`
	IsCompleted         bool      `json:"is_completed"`
	TagsIDs             []any     `json:"tags_ids"`
	Stage               string    `json:"stage"`
	AutoIndex           int       `json:"auto_index"`
	AnalyticalMileage   int       `json:"analytical_mileage"`
	MaxWaitToReadyTime  *int      `json:"max_wait_to_ready_time"`
	WaitToReadyTime     *int      `json:"wait_to_ready_time"`
	GuaranteeStatus     string    `json:"guarantee_status"`
	GenerationStartTime time.Time `json:"generation_start_time"`
	AdditionalBlocks    []any     `json:"additional_blocks"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Content wraps the report body and its generation state.
type Content struct {
	UID           *string      `json:"uid"`
	Name          *string      `json:"name"`
	Tags          *string      `json:"tags"`
	Query         *Query       `json:"query"`
	State         *State       `json:"state"`
	Comment       *string      `json:"comment"`
	Content       *ContentData `json:"content"`
	ActiveTo      *time.Time   `json:"active_to"`
	CreatedAt     *time.Time   `json:"created_at"`
	CreatedBy     *string      `json:"created_by"`
	DomainUID     *string      `json:"domain_uid"`
	UpdatedAt     *time.Time   `json:"updated_at"`
	UpdatedBy     *string      `json:"updated_by"`
	VehicleID     *string      `json:"vehicle_id"`
	ProgressOk    *int         `json:"progress_ok"`
	ProgressWait  *int         `json:"progress_wait"`
	ProgressError *int         `json:"progress_error"`
	ReportTypeUID *string      `json:"report_type_uid"`
}

type State struct {
	Sources []SourceState `json:"sources"`
}

type SourceState struct {
	ID    string `json:"_id"`
	State string `json:"state"`
}

// ContentData is the report body. Sections the client does not interpret are kept raw.
type ContentData struct {
	TechData            *TechData       `json:"tech_data"`
	Identifiers         *Identifiers    `json:"identifiers"`
	Mileages            *Mileages       `json:"mileages"`
	Accidents           json.RawMessage `json:"accidents,omitempty"`
	Pledges             json.RawMessage `json:"pledges,omitempty"`
	Ownership           json.RawMessage `json:"ownership,omitempty"`
	Stealings           json.RawMessage `json:"stealings,omitempty"`
	Fines               json.RawMessage `json:"fines,omitempty"`
	Restrictions        json.RawMessage `json:"restrictions,omitempty"`
	Utilizations        json.RawMessage `json:"utilizations,omitempty"`
	RegistrationActions json.RawMessage `json:"registration_actions,omitempty"`
	MarketPrices        json.RawMessage `json:"market_prices,omitempty"`
	AdditionalInfo      json.RawMessage `json:"additional_info,omitempty"`
	Images              *Images         `json:"images"`
}

type TechData struct {
	Brand *Brand `json:"brand"`
	Model *Name  `json:"model"`
	Year  *int   `json:"year"`
}

type Brand struct {
	Name     *Name  `json:"name"`
	Logotype *Image `json:"logotype"`
}

type Name struct {
	Original   *string `json:"original"`
	Normalized *string `json:"normalized"`
}

type Identifiers struct {
	Vehicle *VehicleIdentifiers `json:"vehicle"`
}

type VehicleIdentifiers struct {
	VIN    *string `json:"vin"`
	RegNum *string `json:"reg_num"`
	Body   *string `json:"body"`
}

type Mileages struct {
	Count int       `json:"count"`
	Items []Mileage `json:"items"`
}

type Mileage struct {
	Mileage int        `json:"mileage"`
	Date    *time.Time `json:"date"`
}

type Images struct {
	Photos *Photos `json:"photos"`
}

type Photos struct {
	Count int     `json:"count"`
	Items []Image `json:"items"`
}

type Image struct {
	URI string `json:"uri"`
}

// ShortInformation is the handful of fields most callers want from a report.
type ShortInformation struct {
	UUID      string
	Year      *int
	Title     *string
	QueryType *string
	RegNum    *string
	VIN       *string
	Photos    []string
	Logotype  *string
}

// Link is the report's web page.
func (s ShortInformation) Link() string {
	return ReportURI + s.UUID
}

// Information collects ShortInformation; missing sections leave fields nil.
func (r *Report) Information() ShortInformation {
	info := ShortInformation{UUID: r.UUID}
	if r.Content == nil {
		return info
	}
	if q := r.Content.Query; q != nil {
		t := q.Type
		info.QueryType = &t
	}
	data := r.Content.Content
	if data == nil {
		return info
	}
	if td := data.TechData; td != nil {
		info.Year = td.Year
		if b := td.Brand; b != nil {
			if b.Name != nil {
				info.Title = b.Name.Original
			}
			if b.Logotype != nil {
				uri := b.Logotype.URI
				info.Logotype = &uri
			}
		}
	}
	if id := data.Identifiers; id != nil && id.Vehicle != nil {
		info.VIN = upper(id.Vehicle.VIN)
		info.RegNum = upper(id.Vehicle.RegNum)
	}
	if data.Images != nil && data.Images.Photos != nil {
		for _, p := range data.Images.Photos.Items {
			info.Photos = append(info.Photos, p.URI)
		}
	}
	return info
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	u := strings.ToUpper(*s)
	return &u
}
