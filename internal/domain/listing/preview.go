package listing

import "encoding/json"

// Preview is the reduced projection shown on map pins and result cards.
// Photos is nil, encoded as JSON null, when the photo sequence it was built from is empty.
type Preview struct {
	ID           string          `json:"id"`
	PropertyName string          `json:"propertyName"`
	Location     Location        `json:"location"`
	Coordinates  Coordinates     `json:"coordinates"`
	Rent         json.RawMessage `json:"rent"`
	Beds         json.RawMessage `json:"beds"`
	Baths        json.RawMessage `json:"baths"`
	Sqft         json.RawMessage `json:"sqft"`
	Photos       []PhotoRef      `json:"photos"`
}

// Preview projects the record with the given photo sequence. An empty sequence yields nil Photos.
func (l Listing) Preview(photos []PhotoRef) Preview {
	var out []PhotoRef
	if len(photos) > 0 {
		out = append([]PhotoRef(nil), photos...)
	}
	return Preview{
		ID:           l.id,
		PropertyName: l.propertyName,
		Location:     l.location,
		Coordinates:  l.Coordinates(),
		Rent:         l.rent,
		Beds:         l.beds,
		Baths:        l.baths,
		Sqft:         l.sqft,
		Photos:       out,
	}
}
