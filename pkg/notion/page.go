package notion

import (
	"time"
	"unicode/utf8"

	"github.com/jomei/notionapi"
)

// Notion rejects rich text content longer than this many characters.
const maxTextLen = 2000

// Upload is the summary of one processed upload.
type Upload struct {
	ID         string
	Filename   string
	Rows       int
	Revenue    float64
	Profit     float64
	AOV        float64
	Imputation string
	Insights   []string
	CreatedAt  time.Time
}

// UploadPage builds the page recording u in database dbID. The database is
// expected to have the properties Name (title), Upload ID, Rows, Revenue,
// Profit, AOV, Cost Imputation and Processed.
func UploadPage(dbID string, u Upload) *notionapi.PageCreateRequest {
	created := notionapi.Date(u.CreatedAt)

	children := make([]notionapi.Block, 0, len(u.Insights))
	for _, line := range u.Insights {
		children = append(children, notionapi.BulletedListItemBlock{
			BasicBlock: notionapi.BasicBlock{
				Object: notionapi.ObjectTypeBlock,
				Type:   notionapi.BlockTypeBulletedListItem,
			},
			BulletedListItem: notionapi.ListItem{RichText: richText(line)},
		})
	}

	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: notionapi.Properties{
			"Name": notionapi.TitleProperty{
				Type:  notionapi.PropertyTypeTitle,
				Title: richText(u.Filename),
			},
			"Upload ID": notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: richText(u.ID),
			},
			"Rows":    notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: float64(u.Rows)},
			"Revenue": notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: u.Revenue},
			"Profit":  notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: u.Profit},
			"AOV":     notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: u.AOV},
			"Cost Imputation": notionapi.SelectProperty{
				Type:   notionapi.PropertyTypeSelect,
				Select: notionapi.Option{Name: u.Imputation},
			},
			"Processed": notionapi.DateProperty{
				Type: notionapi.PropertyTypeDate,
				Date: &notionapi.DateObject{Start: &created},
			},
		},
		Children: children,
	}
}

func richText(s string) []notionapi.RichText {
	if utf8.RuneCountInString(s) > maxTextLen {
		s = string([]rune(s)[:maxTextLen])
	}
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}
