package types

// QueryType names what a report query string is: a VIN, a body number or a
// state registration plate.
type QueryType string

const (
	QueryVIN  QueryType = "VIN"
	QueryBody QueryType = "BODY"
	QueryGRZ  QueryType = "GRZ"
)

// Valid reports whether q is one of the known query types.
func (q QueryType) Valid() bool {
	switch q {
	case QueryVIN, QueryBody, QueryGRZ:
		return true
	}
	return false
}

// ReviewGeneration is the result of report.create.
type ReviewGeneration struct {
	UUID              string `json:"uuid"`
	Channel           string `json:"channel"`
	MaxGenerationTime int    `json:"max_generation_time"`
}

// ReviewUpgrade is the result of report.upgrade and report.additional.upgrade.
type ReviewUpgrade struct {
	Channel            string `json:"channel"`
	MaxWaitToReadyTime int    `json:"max_wait_to_ready_time"`
}
