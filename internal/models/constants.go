package models

const (
	CollectionName = "financial_policy"
	DocumentType   = "financial_policy"
	ChunkIDPrefix  = "policy_chunk_"

	MetaPage         = "actual_page"
	MetaPhysicalPage = "page"
	MetaPageSource   = "page_source"
	MetaChunkID      = "chunk_id"
	MetaDocumentType = "document_type"
)

// FooterPatterns match the Budget Paper footer, most specific first.
// Group 1 is the printed page number.
var FooterPatterns = []string{
	`(?i)\d{4}-\d{2}\s+Budget\s+Paper\s+No\.\s*\d+\s+(\d+)\s+Financial\s+Policy`,
	`(?i)Budget\s+Paper\s+No\.\s*\d+\s+(\d+)\s+Financial\s+Policy`,
	`(?i)Budget\s+Paper\s+No\.\s*\d+\s+(\d+)\s+Financial\s+Policy.*?Statement`,
}
