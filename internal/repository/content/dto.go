package content

import (
	"strconv"
	"strings"
	"time"

	domcontent "github.com/kailas-cloud/postfilter/internal/domain/content"
)

// Hash field names and prefixes. The same names are the FT index schema.
const (
	fieldID       = "id"
	fieldPostType = "post_type"
	fieldStatus   = "status"
	fieldAuthor   = "author"
	fieldTitle    = "title"
	fieldExcerpt  = "excerpt"
	fieldLink     = "link"
	fieldDate     = "date"
	fieldModified = "modified"

	taxPrefix  = "tax_"
	metaPrefix = "meta_"
	numPrefix  = "num_"

	tagSeparator = ","
)

// TaxField returns the index field holding term ids of a taxonomy.
func TaxField(taxonomy string) string { return taxPrefix + taxonomy }

// MetaField returns the index field holding values of a custom field.
func MetaField(key string) string { return metaPrefix + key }

// NumField returns the index field holding a numeric custom field.
func NumField(key string) string { return numPrefix + key }

// buildHashFields flattens an item into hash fields for HSET.
func buildHashFields(it domcontent.Item) map[string]string {
	m := map[string]string{
		fieldID:       strconv.FormatUint(it.ID(), 10),
		fieldPostType: it.PostType(),
		fieldStatus:   string(it.Status()),
		fieldAuthor:   strconv.FormatUint(it.Author(), 10),
		fieldTitle:    it.Title(),
		fieldExcerpt:  it.Excerpt(),
		fieldLink:     it.Link(),
		fieldDate:     strconv.FormatInt(it.Date().Unix(), 10),
		fieldModified: strconv.FormatInt(it.Modified().Unix(), 10),
	}
	for tax, ids := range it.Terms() {
		if len(ids) == 0 {
			continue
		}
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatUint(id, 10)
		}
		m[TaxField(tax)] = strings.Join(parts, tagSeparator)
	}
	for k, vals := range it.Meta() {
		if len(vals) == 0 {
			continue
		}
		clean := make([]string, len(vals))
		for i, v := range vals {
			clean[i] = strings.ReplaceAll(v, tagSeparator, " ")
		}
		m[MetaField(k)] = strings.Join(clean, tagSeparator)
	}
	for k, v := range it.Numeric() {
		m[NumField(k)] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return m
}

// parseHashFields rebuilds an item from hash fields. Unparseable values are skipped.
func parseHashFields(id uint64, m map[string]string) domcontent.Item {
	f := domcontent.Fields{
		PostType: m[fieldPostType],
		Status:   domcontent.Status(m[fieldStatus]),
		Title:    m[fieldTitle],
		Excerpt:  m[fieldExcerpt],
		Link:     m[fieldLink],
		Date:     parseUnix(m[fieldDate]),
		Modified: parseUnix(m[fieldModified]),
	}
	f.Author, _ = strconv.ParseUint(m[fieldAuthor], 10, 64)

	for k, v := range m {
		switch {
		case strings.HasPrefix(k, taxPrefix):
			for _, s := range strings.Split(v, tagSeparator) {
				if n, err := strconv.ParseUint(s, 10, 64); err == nil {
					if f.Terms == nil {
						f.Terms = map[string][]uint64{}
					}
					tax := strings.TrimPrefix(k, taxPrefix)
					f.Terms[tax] = append(f.Terms[tax], n)
				}
			}
		case strings.HasPrefix(k, metaPrefix):
			if f.Meta == nil {
				f.Meta = map[string][]string{}
			}
			f.Meta[strings.TrimPrefix(k, metaPrefix)] = strings.Split(v, tagSeparator)
		case strings.HasPrefix(k, numPrefix):
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				if f.Numeric == nil {
					f.Numeric = map[string]float64{}
				}
				f.Numeric[strings.TrimPrefix(k, numPrefix)] = n
			}
		}
	}

	return domcontent.Reconstruct(id, f)
}

func parseUnix(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}
