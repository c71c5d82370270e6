package textnorm

import "github.com/Keyring-Network/keyring-notes/internal/lang"

var englishStopWords = wordSet(
	"a", "about", "above", "after", "again", "all", "also", "am", "an", "and", "any", "are",
	"as", "at", "be", "been", "before", "being", "between", "both", "but", "by", "can",
	"could", "did", "do", "does", "doing", "down", "during", "each", "few", "for", "from",
	"further", "get", "give", "had", "has", "have", "having", "her", "here", "hers", "him",
	"his", "how", "into", "its", "itself", "just", "list", "may", "might", "more", "most",
	"must", "myself", "nor", "not", "now", "off", "once", "only", "other", "our", "ours",
	"out", "over", "own", "please", "same", "shall", "she", "should", "show", "some",
	"such", "tell", "than", "that", "the", "their", "theirs", "them", "then", "there",
	"these", "they", "this", "those", "through", "too", "under", "until", "very", "was",
	"were", "what", "when", "where", "which", "while", "who", "whom", "whose", "why",
	"will", "with", "would", "you", "your", "yours",
)

var polishStopWords = wordSet(
	"aby", "albo", "ale", "bez", "będzie", "był", "była", "było", "być", "czy", "czym",
	"czego", "dla", "gdy", "gdzie", "ich", "ile", "jak", "jaka", "jaki", "jakie", "jakim",
	"jest", "jestem", "jeśli", "jeszcze", "już", "kiedy", "kto", "która", "które", "który",
	"lub", "mają", "mam", "mieć", "mnie", "moich", "moim", "moja", "moje", "mojej", "mój",
	"nad", "nam", "nas", "nie", "oraz", "pod", "proszę", "przez", "przy", "są", "się",
	"tak", "tam", "tego", "tej", "ten", "też", "więc", "wszystko", "że",
)

func stopWordsFor(code lang.Code) map[string]struct{} {
	if code == lang.Polish {
		return polishStopWords
	}
	return englishStopWords
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}
