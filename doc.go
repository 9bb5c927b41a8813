// Package chunkdex is an embeddable client for hierarchical chunk search
// over Valkey or Redis with search modules.
//
// Documents are stored as trees of chunks. A search resolves its parameters
// against configured defaults, restricts the KNN query to one hierarchy
// level when asked, and can pull each hit's parent chunk into the result.
//
//	client, _ := chunkdex.New(ctx,
//	    chunkdex.WithValkey("localhost:6379", ""),
//	    chunkdex.WithDefaults(map[string]any{"collection": "docs", "top": 5}),
//	)
//	defer client.Close()
//
//	_, _ = client.EnsureCollection(ctx, "docs", "",
//	    chunkdex.WithVector("", 768, chunkdex.MethodCosine),
//	    chunkdex.WithField("language", chunkdex.FieldTag),
//	)
//	_, _ = client.Persist(ctx, "docs", "", doc)
//
//	out, _ := client.RequestInvoker().Invoke(ctx,
//	    `{"query_embedding":[...],"operation_level":-1,"parent_strategy":"include"}`)
//
// Invokers return the search response as JSON:
//
//	{"documents":[{"filename","document_metadata","chunks":[...]}],"warnings":[...]}
package chunkdex
