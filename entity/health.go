package entity

type Health struct {
	Status          string `json:"status"`
	Agent           string `json:"agent"`
	Agency          string `json:"agency"`
	RetrieverLoaded bool   `json:"retriever_loaded"`
}
