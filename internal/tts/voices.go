package tts

// Voice identifies one Kokoro v1.0 speaker: the numeric ID baked into
// voices.bin plus the espeak-ng code that selects its phonemizer.
type Voice struct {
	SpeakerID int
	Espeak    string
}

// kokoroVoices maps the 53 Kokoro v1.0 voice names to their speaker
// IDs. The name prefix encodes language and gender (af = American
// female, bm = British male, and so on).
var kokoroVoices = map[string]Voice{
	// American English
	"af_alloy":   {0, "en-us"},
	"af_aoede":   {1, "en-us"},
	"af_bella":   {2, "en-us"},
	"af_heart":   {3, "en-us"},
	"af_jessica": {4, "en-us"},
	"af_kore":    {5, "en-us"},
	"af_nicole":  {6, "en-us"},
	"af_nova":    {7, "en-us"},
	"af_river":   {8, "en-us"},
	"af_sarah":   {9, "en-us"},
	"af_sky":     {10, "en-us"},
	"am_adam":    {11, "en-us"},
	"am_echo":    {12, "en-us"},
	"am_eric":    {13, "en-us"},
	"am_fenrir":  {14, "en-us"},
	"am_liam":    {15, "en-us"},
	"am_michael": {16, "en-us"},
	"am_onyx":    {17, "en-us"},
	"am_puck":    {18, "en-us"},
	"am_santa":   {19, "en-us"},

	// British English
	"bf_alice":    {20, "en-gb"},
	"bf_emma":     {21, "en-gb"},
	"bf_isabella": {22, "en-gb"},
	"bf_lily":     {23, "en-gb"},
	"bm_daniel":   {24, "en-gb"},
	"bm_fable":    {25, "en-gb"},
	"bm_george":   {26, "en-gb"},
	"bm_lewis":    {27, "en-gb"},

	// Spanish
	"ef_dora": {28, "es"},
	"em_alex": {29, "es"},

	// French
	"ff_siwis": {30, "fr-fr"},

	// Hindi
	"hf_alpha": {31, "hi"},
	"hf_beta":  {32, "hi"},
	"hm_omega": {33, "hi"},
	"hm_psi":   {34, "hi"},

	// Italian
	"if_sara":   {35, "it"},
	"im_nicola": {36, "it"},

	// Japanese
	"jf_alpha":      {37, "ja"},
	"jf_gongitsune": {38, "ja"},
	"jf_nezumi":     {39, "ja"},
	"jf_tebukuro":   {40, "ja"},
	"jm_kumo":       {41, "ja"},

	// Brazilian Portuguese
	"pf_dora":  {42, "pt-br"},
	"pm_alex":  {43, "pt-br"},
	"pm_santa": {44, "pt-br"},

	// Mandarin Chinese
	"zf_xiaobei":  {45, "cmn"},
	"zf_xiaoni":   {46, "cmn"},
	"zf_xiaoxiao": {47, "cmn"},
	"zf_xiaoyi":   {48, "cmn"},
	"zm_yunjian":  {49, "cmn"},
	"zm_yunxi":    {50, "cmn"},
	"zm_yunxia":   {51, "cmn"},
	"zm_yunyang":  {52, "cmn"},
}

// LookupVoice resolves a Kokoro voice name.
func LookupVoice(name string) (Voice, bool) {
	v, ok := kokoroVoices[name]
	return v, ok
}

// English and Mandarin voices phonemize through lexicon files; the
// rest pass their espeak code to the engine's Lang parameter instead.
// Lexicon and Lang report the right value for each side, empty for the
// other.

// Lexicon returns the comma-separated lexicon file names (relative to
// the model directory) for this voice, or "" if it uses Lang instead.
func (v Voice) Lexicon() string {
	switch v.Espeak {
	case "en-us":
		return "lexicon-us-en.txt"
	case "en-gb":
		return "lexicon-gb-en.txt"
	case "cmn":
		return "lexicon-us-en.txt,lexicon-zh.txt"
	default:
		return ""
	}
}

// Lang returns the espeak-ng code to hand the engine, or "" for
// lexicon-driven voices.
func (v Voice) Lang() string {
	if v.Lexicon() != "" {
		return ""
	}
	return v.Espeak
}
