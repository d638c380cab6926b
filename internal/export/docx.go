package export

import (
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"github.com/synevola/synevola/internal/pipeline"
	"github.com/synevola/synevola/internal/transcript"
)

const (
	fontName  = "Times New Roman"
	fontSize  = 12
	titleSize = 16
	headSize  = 14
)

// writeReportDocx lays out the consultation report: title, summary, then
// the speaker-attributed transcript line by line
func writeReportDocx(path string, run *pipeline.Run, render transcript.RenderOptions) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addHeading(doc.AddParagraph(""), "Compte rendu de consultation", titleSize)
	addBody(doc.AddParagraph(""), "Enregistrement : "+run.AudioPath)
	addBody(doc.AddParagraph(""), "Date : "+run.StartTime.Format("02/01/2006 15:04"))
	if run.DegradedDiarization {
		addBody(doc.AddParagraph(""), "Attention : locuteurs non identifiés (diarisation indisponible)")
	}
	doc.AddParagraph("")

	if run.Summary != nil && run.Summary.FinalSummary != "" {
		addHeading(doc.AddParagraph(""), "Résumé", headSize)
		for _, line := range strings.Split(run.Summary.FinalSummary, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				addBody(doc.AddParagraph(""), trimmed)
			}
		}
		doc.AddParagraph("")
	}

	if len(run.Transcript) > 0 {
		addHeading(doc.AddParagraph(""), "Transcription", headSize)
		for _, line := range strings.Split(transcript.Render(run.Transcript, render), "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				addBody(doc.AddParagraph(""), trimmed)
			}
		}
	}

	return doc.SaveTo(path)
}

func addHeading(p *docx.Paragraph, text string, size uint64) {
	p.AddText(text).Font(fontName).Size(size).Color("000000").Bold(true)
}

func addBody(p *docx.Paragraph, text string) {
	p.AddText(text).Font(fontName).Size(fontSize).Color("000000")
}
