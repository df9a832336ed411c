package notion

// Property value constructors for the payload shapes the pages endpoints
// expect. Each returns a fragment suitable as a Properties map value.

// Title builds a title property value.
func Title(text string) interface{} {
	return map[string]interface{}{
		"title": []interface{}{textContent(text)},
	}
}

// RichText builds a rich_text property value with a single text run.
func RichText(text string) interface{} {
	return map[string]interface{}{
		"rich_text": []interface{}{textContent(text)},
	}
}

// Number builds a number property value.
func Number(n int) interface{} {
	return map[string]interface{}{
		"number": n,
	}
}

// Select builds a select property value with the given option name.
func Select(name string) interface{} {
	return map[string]interface{}{
		"select": map[string]interface{}{"name": name},
	}
}

// MultiSelect builds a multi_select property value from option names.
func MultiSelect(names []string) interface{} {
	options := make([]interface{}, 0, len(names))
	for _, name := range names {
		options = append(options, map[string]interface{}{"name": name})
	}
	return map[string]interface{}{
		"multi_select": options,
	}
}

// URL builds a url property value.
func URL(u string) interface{} {
	return map[string]interface{}{
		"url": u,
	}
}

func textContent(text string) map[string]interface{} {
	return map[string]interface{}{
		"text": map[string]interface{}{"content": text},
	}
}
