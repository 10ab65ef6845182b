package notification

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/wms-platform/audit-service/internal/domain"
)

var (
	discrepancyHTML = template.Must(template.New("discrepancy").Parse(
		`<p>A new inventory entry requires your review:</p>
<ul>
  <li>{{.Label}}: {{.ItemID}}</li>
  <li>Location: {{.Location}}</li>
  <li>Gap: {{.Result}} ({{.Magnitude}})</li>
</ul>
<p>Please log in to the portal to review this entry.</p>`))

	resolutionHTML = template.Must(template.New("resolution").Parse(
		`<p>Your inventory entry was {{.Action}} by the client.</p>
<p>{{.Label}}: {{.ItemID}} at {{.Location}}</p>
{{if .Comment}}<p>Comment: {{.Comment}}</p>{{end}}
<p>Please log in to the portal for more details.</p>`))
)

type messageData struct {
	Label     string
	ItemID    string
	Location  string
	Result    string
	Magnitude float64
	Action    string
	Comment   string
}

func dataFor(entry *domain.InventoryEntry) messageData {
	label := "SKU ID"
	if entry.Kind == domain.EntryKindBin {
		label = "Bin ID"
	}
	d := messageData{
		Label:     label,
		ItemID:    entry.ItemID(),
		Location:  entry.Location,
		Result:    string(entry.AuditResult),
		Magnitude: domain.RoundForDisplay(entry.Discrepancy),
	}
	if entry.ClientResponse != nil {
		d.Action = string(entry.ClientResponse.Action)
		d.Comment = entry.ClientResponse.Comment
	}
	return d
}

// DiscrepancyMessage renders the review request sent to a client
func DiscrepancyMessage(entry *domain.InventoryEntry) (Message, error) {
	d := dataFor(entry)
	var body bytes.Buffer
	if err := discrepancyHTML.Execute(&body, d); err != nil {
		return Message{}, fmt.Errorf("failed to render discrepancy message: %w", err)
	}
	return Message{
		Subject: "New Inventory Entry Requires Review",
		HTML:    body.String(),
		Text:    fmt.Sprintf("New inventory entry requires review. %s: %s, Location: %s, Gap: %s", d.Label, d.ItemID, d.Location, d.Result),
	}, nil
}

// ResolutionMessage renders the decision sent back to the submitting staff member
func ResolutionMessage(entry *domain.InventoryEntry) (Message, error) {
	d := dataFor(entry)
	var body bytes.Buffer
	if err := resolutionHTML.Execute(&body, d); err != nil {
		return Message{}, fmt.Errorf("failed to render resolution message: %w", err)
	}
	text := fmt.Sprintf("Your inventory entry was %s by the client. %s: %s", d.Action, d.Label, d.ItemID)
	if d.Comment != "" {
		text += ". Comment: " + d.Comment
	}
	return Message{
		Subject: "Inventory Entry Update",
		HTML:    body.String(),
		Text:    text,
	}, nil
}
