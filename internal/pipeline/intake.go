package pipeline

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
	"github.com/mladen1312/nyx-light-racunovodja/internal/oib"
	"github.com/mladen1312/nyx-light-racunovodja/internal/types"
)

// ClientRecord is one entry in the intake client directory: the lookup
// keys under which an ingested document can be matched to a client
// (spec.md §3 PipelineDocument: "detected client (via tax-id / IBAN /
// sender domain / folder)").
type ClientRecord struct {
	ClientID     string
	OIB          string
	IBAN         string
	SenderDomain string
	Folder       string
}

// Intake turns an ingested file or message into a PipelineDocument:
// detected kind, detected client, assigned module, confidence and the
// routing method that produced the match. It implies no booking — a
// booking exists only after the assigned module runs (spec.md §3).
type Intake struct {
	clients []ClientRecord
}

func NewIntake(clients []ClientRecord) *Intake {
	return &Intake{clients: clients}
}

var (
	intakeIBANPattern = regexp.MustCompile(`\bHR\d{19}\b`)
	intakeOIBPattern  = regexp.MustCompile(`\b\d{11}\b`)
)

// kindRule maps a filename/content clue to a document kind and the module
// that handles it. First match wins; ordering is from the most specific
// wire-format clue down to the filename fallbacks.
type kindRule struct {
	kind       types.DocumentKind
	module     string
	confidence float64
}

// Detect classifies one ingested document. sender is the originating
// address or empty for folder/manual drops; raw may be nil for path-only
// intake (the assigned module re-reads the file itself).
func (in *Intake) Detect(filePath, sender string, raw []byte) *types.PipelineDocument {
	doc := &types.PipelineDocument{
		ID:        types.NewID("doc"),
		FilePath:  filePath,
		Raw:       raw,
		CreatedAt: time.Now().UTC(),
	}

	rule := detectKind(filePath, raw)
	doc.DetectedKind = rule.kind
	doc.AssignedModule = rule.module
	doc.Confidence = rule.confidence

	client, method := in.detectClient(filePath, sender, raw)
	doc.DetectedClient = client
	doc.RoutingMethod = method
	if client == "" {
		// Routing a document to the wrong client is worse than asking;
		// an unmatched client halves the confidence so the review UI
		// surfaces it first.
		doc.Confidence = doc.Confidence / 2
	}

	logging.For(logging.CategoryPipeline).Info("document intake",
		zap.String("id", doc.ID),
		zap.String("kind", string(doc.DetectedKind)),
		zap.String("module", doc.AssignedModule),
		zap.String("client", doc.DetectedClient),
		zap.String("routing", doc.RoutingMethod))
	return doc
}

func detectKind(filePath string, raw []byte) kindRule {
	name := strings.ToLower(filepath.Base(filePath))
	ext := filepath.Ext(name)
	content := string(raw)

	switch {
	case ext == ".xml" && (strings.Contains(content, "<Invoice") || strings.Contains(content, "CrossIndustryInvoice") || strings.Contains(content, "FatturaElettronica")):
		return kindRule{types.DocPurchaseInvoice, "eracuni_parser", 0.95}
	case ext == ".xml" && strings.Contains(content, "camt.053"):
		return kindRule{types.DocBankStatement, "bank_parser", 0.95}
	case strings.Contains(name, "izvod") || strings.Contains(content, ":20:") && strings.Contains(content, ":25:"):
		// MT940 tag pair or "izvod" in the filename.
		return kindRule{types.DocBankStatement, "bank_parser", 0.8}
	case strings.Contains(name, "putni"):
		return kindRule{types.DocTravelOrder, "putni_nalozi", 0.8}
	case strings.Contains(name, "blagajna"):
		return kindRule{types.DocTill, "blagajna", 0.8}
	case strings.Contains(name, "ios"):
		return kindRule{types.DocIOS, "ios", 0.75}
	case strings.Contains(name, "plac") || strings.Contains(name, "plać"):
		return kindRule{types.DocPayroll, "payroll", 0.75}
	case ext == ".pdf":
		return kindRule{types.DocPurchaseInvoice, "invoice_ocr", 0.6}
	case ext == ".jpg" || ext == ".jpeg" || ext == ".png" || ext == ".heic":
		return kindRule{types.DocOther, "vision_llm", 0.5}
	default:
		return kindRule{types.DocOther, "universal_parser", 0.4}
	}
}

// detectClient matches the document to a client, trying the routing
// methods in decreasing reliability: OIB in the content, IBAN in the
// content, the sender's mail domain, then the drop-folder path.
func (in *Intake) detectClient(filePath, sender string, raw []byte) (clientID, method string) {
	content := string(raw)

	for _, candidate := range intakeOIBPattern.FindAllString(content, -1) {
		if !oib.Valid(candidate) {
			continue
		}
		for _, c := range in.clients {
			if c.OIB == candidate {
				return c.ClientID, "tax_id"
			}
		}
	}

	for _, candidate := range intakeIBANPattern.FindAllString(content, -1) {
		for _, c := range in.clients {
			if c.IBAN == candidate {
				return c.ClientID, "iban"
			}
		}
	}

	if at := strings.LastIndex(sender, "@"); at >= 0 {
		domain := strings.ToLower(sender[at+1:])
		for _, c := range in.clients {
			if c.SenderDomain != "" && strings.EqualFold(c.SenderDomain, domain) {
				return c.ClientID, "sender_domain"
			}
		}
	}

	dir := filepath.ToSlash(filepath.Dir(filePath))
	for _, c := range in.clients {
		if c.Folder != "" && strings.Contains(dir+"/", "/"+c.Folder+"/") {
			return c.ClientID, "folder"
		}
	}

	return "", ""
}
