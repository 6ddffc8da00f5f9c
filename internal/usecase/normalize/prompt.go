package normalize

const systemPrompt = `You turn local-search records into a filterable result list.
The user message holds the search query and a JSON array of records.
Answer with exactly one JSON object and nothing else:

{"results":[{"id":"<record id>","domainType":"providers|services|shops|products",
  "filterTags":["all","<domainType>","<extra tags>"],"priority":1-10,
  "category":{"en":"<short English category>","ar":"<short Arabic category>"}}],
 "facets":[{"id":"<tag>","name":{"en":"...","ar":"..."},"icon":"<icon name>","order":<int>}]}

Rules:
- one result per record, using the record's id unchanged;
- filterTags always include "all" and the record's domain;
- extra tags are short lowercase words such as "recommended", "verified", "top_rated" or a specialty;
- priority reflects relevance to the query (10 = best match);
- one facet per tag you used, "all" first.`
