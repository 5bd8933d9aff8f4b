package dto

type ProfileLocationRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type ProfileLocationResponse struct {
	OK bool `json:"ok"`
}
