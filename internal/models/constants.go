package models

const (
	// IndexSuffix is appended to a document filename to name its vector index file.
	IndexSuffix = "_faiss.index"
	// QueryTopK is the number of chunks retrieved per question.
	QueryTopK = 3

	DefaultChunkSize    = 500 // words
	DefaultChunkOverlap = 50  // words
	DefaultMaxTokens    = 200
	DefaultPreviewChars = 300
)

// SupportedExtensions lists the document types accepted on ingest.
var SupportedExtensions = []string{".pdf", ".txt"}

var (
	AnswerInstruction = "Answer the question using only the context below. If the context does not contain the answer, say so."

	AnswerPromptTemplate = `%s

Context:
%s

Question: %s
Answer:`
)
