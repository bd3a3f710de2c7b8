package mapsink

import "github.com/unklstewy/flightarcs/pkg/arcs"

// Source, layer and image names shared by every front-end.
const (
	SourceAirports = "airports"
	LayerAirports  = "airports"
	LayerHubs      = "airport_hubs"

	SourceArcs       = "geodesic-lines"
	LayerArcs        = "geodesic-lines-layer"
	LayerPartnerArcs = "geodesic-lines-partner-layer"

	HubIcon = "delta_circle"
)

// Marker colors
const (
	OriginMarkerColor      = "#051434"
	DestinationMarkerColor = "#2F70A8"
)

// AirportLayer draws non-hub airports as small blue circles.
func AirportLayer() Layer {
	return Layer{
		ID:     LayerAirports,
		Source: SourceAirports,
		Kind:   KindCircle,
		Style: Style{
			Radius:      4,
			Color:       "#2F70A8",
			StrokeColor: "white",
			StrokeWidth: 1,
			Opacity:     1,
		},
		Filter: Not(Has("hub")),
	}
}

// HubLayer draws hubs with the hub icon.
func HubLayer() Layer {
	return Layer{
		ID:     LayerHubs,
		Source: SourceAirports,
		Kind:   KindSymbol,
		Style:  Style{Icon: HubIcon, IconSize: 0.1},
		Filter: Equals("hub", true),
	}
}

// DirectArcLayer draws arcs flown by the carrier as solid lines.
func DirectArcLayer() Layer {
	return Layer{
		ID:     LayerArcs,
		Source: SourceArcs,
		Kind:   KindLine,
		Style:  Style{Color: "black", Width: 1},
		Filter: Equals(arcs.PartnerProperty, false),
	}
}

// PartnerArcLayer draws partner-airline arcs as dashed lines.
func PartnerArcLayer() Layer {
	return Layer{
		ID:     LayerPartnerArcs,
		Source: SourceArcs,
		Kind:   KindLine,
		Style:  Style{Color: "black", Width: 1.5, Dash: []float64{4, 4}},
		Filter: Equals(arcs.PartnerProperty, true),
	}
}
