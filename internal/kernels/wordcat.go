package kernels

// wordCatalog supplies the vocabulary of the generated Huffman text.
var wordCatalog = []string{
	"Hello", "He", "Him", "the", "this", "that", "though", "rough",
	"cough", "obviously", "But", "but", "bye", "begin", "beginning",
	"beginnings", "of", "our", "ourselves", "yourselves", "to", "together",
	"togetherness", "from", "either", "I", "A", "return", "However",
	"that's", "worthwhile", "Byte", "byte", "benchmark", "measure",
	"measuring", "memory", "integer", "floating", "point", "time",
	"second", "seconds", "index", "result", "results", "system", "kernel",
	"sort", "string", "array", "arrays", "while", "whilst", "tree", "leaf",
	"node", "nodes", "code", "codes", "text", "line", "lines", "word",
	"words", "and", "or", "not", "is", "are", "was", "were", "quick",
	"brown", "fox", "jumps", "over", "lazy", "dog", "ZEBRA", "Xylophone",
	"quartz", "vexing", "jackdaws", "sphinx", "judge", "my", "vow",
}
