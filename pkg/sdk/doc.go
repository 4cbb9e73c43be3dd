// Package claimsearch provides an embedded Go client for the claims-search
// relevance engine. It wires the full search pipeline (query optimization,
// relevance scoring, faceting, suggestions, multi-language fan-out) in
// process, against the caller's Elasticsearch index and Redis store, without
// running the searchd HTTP server.
//
//	client, err := claimsearch.New(ctx,
//	    claimsearch.WithElasticsearch("http://localhost:9200"),
//	    claimsearch.WithRedis("localhost:6379"),
//	    claimsearch.WithIndex("claims"),
//	)
//	if err != nil { ... }
//	defer client.Close()
//
//	resp, err := client.Search(ctx, claimsearch.SearchRequest{
//	    Text:          "viêm phổi bảo hiểm",
//	    CrossLanguage: true,
//	    NativeBoost:   true,
//	})
package claimsearch
