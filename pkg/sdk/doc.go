// Package shopsearch embeds the shopsearch query pipeline in a Go program.
//
// The client talks to Redis directly (catalog index, interpretation cache,
// promotions) and runs interpretation, filtering, deduplication, merchant
// diversity and ranking in-process. No HTTP server is involved.
//
//	client, err := shopsearch.New(ctx,
//	    shopsearch.WithRedis("localhost:6379", ""),
//	    shopsearch.WithCompleter(myLLM, "gpt-4o-mini"),
//	    shopsearch.WithPromotions(),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	res, err := client.Search(ctx, "gifts for dad under £30", 20)
//
// Without WithCompleter every query that misses the fast path and the cache
// is interpreted by the built-in rule-based expander.
package shopsearch
