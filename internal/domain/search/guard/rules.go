package guard

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain/product"
	"github.com/kailas-cloud/shopsearch/internal/domain/search/filter"
)

// Rule names.
const (
	RuleSafety             = "safety"
	RuleNonProduct         = "non_product"
	RuleMustHave           = "must_have"
	RuleExcludedCategory   = "excluded_category"
	RulePriceRange         = "price_range"
	RuleGender             = "gender"
	RuleAgeWarranty        = "age_warranty"
	RuleCostume            = "costume"
	RuleToy                = "toy"
	RuleWaterGun           = "water_gun"
	RuleMedia              = "media"
	RuleFilm               = "film"
	RuleBookTravel         = "book_travel"
	RuleBlind              = "blind"
	RuleStitch             = "stitch"
	RuleFranchiseCharacter = "franchise_character"
	RuleCollision          = "collision"
)

// DefaultRules returns the production rule table. Narrow context
// disambiguators run before the generic collision guard.
func DefaultRules() []Rule {
	return []Rule{
		{Name: RuleSafety, Apply: applySafety, OnEmpty: AllowEmpty},
		{Name: RuleNonProduct, Detect: wantsProducts, Apply: applyNonProduct, OnEmpty: KeepOriginal},
		{Name: RuleMustHave, Detect: hasMustHave, Apply: applyMustHave, OnEmpty: AllowEmpty},
		{Name: RuleExcludedCategory, Detect: hasExclusions, Apply: applyExcludedCategory, OnEmpty: AllowEmpty},
		{Name: RulePriceRange, Detect: hasPriceRange, Apply: applyPriceRange, OnEmpty: AllowEmpty},
		{Name: RuleGender, Detect: hasGenderContext, Apply: applyGender, OnEmpty: KeepOriginal},
		{Name: RuleAgeWarranty, Detect: hasAgeContext, Apply: applyAgeWarranty, OnEmpty: KeepOriginal},
		{
			Name: RuleCostume, Detect: hasCostumeContext, Apply: applyCostume, OnEmpty: ReportGap,
			Reason: "no costume or fancy dress products matched this search",
		},
		{Name: RuleToy, Detect: hasToyContext, Apply: applyToy, OnEmpty: KeepOriginal},
		{Name: RuleWaterGun, Detect: hasWaterGunContext, Apply: applyWaterGun, OnEmpty: KeepOriginal},
		{Name: RuleMedia, Detect: hasMediaContext, Apply: applyMedia, OnEmpty: KeepOriginal},
		{Name: RuleFilm, Detect: hasFilmContext, Apply: applyFilm, OnEmpty: KeepOriginal},
		{Name: RuleBookTravel, Detect: hasBookContext, Apply: applyBookTravel, OnEmpty: KeepOriginal},
		{Name: RuleBlind, Detect: hasBlindContext, Apply: applyBlind, OnEmpty: KeepOriginal},
		{Name: RuleStitch, Detect: hasStitchContext, Apply: applyStitch, OnEmpty: KeepOriginal},
		{Name: RuleFranchiseCharacter, Detect: hasFranchiseCharacter, Apply: applyFranchiseCharacter, OnEmpty: KeepOriginal},
		{Name: RuleCollision, Detect: hasCollisionWord, Apply: applyCollision, OnEmpty: AllowEmpty},
	}
}

// --- safety ---

// BlockedTerms never appear in a product's name or description in output.
// They match on word boundaries, so "xxx" does not hit the size "xxxl".
var BlockedTerms = []string{
	"sex toy", "adult toy", "adults only", "erotic", "fetish", "bondage", "vibrator", "dildo",
	"xxx", "porn", "nsfw", "vape", "e-cigarette", "e-liquid", "nicotine", "cbd oil",
	"ammunition", "knuckle duster", "flick knife", "butterfly knife", "lock knife",
}

// BlockedMerchants are excluded regardless of the product.
var BlockedMerchants = []string{"ann summers", "lovehoney", "vape club", "vapestore"}

func applySafety(products []product.Product, _ Query) []product.Product {
	return keep(products, false, func(p *product.Product) bool {
		if hasAnyWord(words(p.Name), BlockedTerms) || hasAnyWord(words(p.Description), BlockedTerms) {
			return false
		}
		m := p.MerchantKey()
		for _, b := range BlockedMerchants {
			if m == b {
				return false
			}
		}
		return true
	})
}

// --- non-product listings ---

var nonProductPhrases = []string{
	"gift card", "gift voucher", "e-voucher", "voucher code", "extended warranty",
	"protection plan", "care plan", "delivery charge", "delivery pass", "installation service",
	"membership", "subscription",
}

var nonProductQueryWords = []string{
	"gift card", "voucher", "warranty", "subscription", "membership", "installation", "delivery",
}

func wantsProducts(q Query) bool { return !q.HasAnyWord(nonProductQueryWords...) }

func applyNonProduct(products []product.Product, _ Query) []product.Product {
	return keep(products, true, func(p *product.Product) bool {
		return !containsAny(p.LowerName(), nonProductPhrases)
	})
}

// --- must-have terms ---

func hasMustHave(q Query) bool { return len(q.MustHaveAll) > 0 || len(q.MustHaveAny) > 0 }

func applyMustHave(products []product.Product, q Query) []product.Product {
	return keep(products, true, func(p *product.Product) bool {
		text := words(p.Text())
		for _, t := range q.MustHaveAll {
			if !hasWord(text, t) {
				return false
			}
		}
		return len(q.MustHaveAny) == 0 || hasAnyWord(text, q.MustHaveAny)
	})
}

// --- excluded categories ---

func hasExclusions(q Query) bool { return len(q.ExcludeCategories) > 0 }

func applyExcludedCategory(products []product.Product, q Query) []product.Product {
	return keep(products, false, func(p *product.Product) bool {
		cat := strings.ToLower(p.Category)
		if cat == "" {
			return true
		}
		for _, ex := range q.ExcludeCategories {
			if strings.Contains(cat, ex) {
				return false
			}
		}
		return true
	})
}

// --- price range ---

func hasPriceRange(q Query) bool { return q.MinPrice != nil || q.MaxPrice != nil }

func applyPriceRange(products []product.Product, q Query) []product.Product {
	b, err := filter.NewBounds(q.MinPrice, q.MaxPrice)
	if err != nil {
		return products
	}
	return keep(products, false, func(p *product.Product) bool { return b.Contains(p.Price) })
}

// --- gender ---

var (
	maleCues = []string{
		"him", "his", "he", "boyfriend", "husband", "dad", "daddy", "father", "grandad", "grandpa",
		"brother", "son", "nephew", "uncle", "men", "mens", "man", "boy", "male", "gentleman",
	}
	femaleCues = []string{
		"her", "she", "girlfriend", "wife", "mum", "mummy", "mom", "mother", "nan", "nana",
		"grandma", "sister", "daughter", "niece", "aunt", "auntie", "women", "womens", "woman",
		"ladies", "lady", "girl", "female",
	}
	maleOnlyProduct   = []string{"men", "men s", "boys", "boy s", "male", "for him", "gents", "menswear"}
	femaleOnlyProduct = []string{
		"women", "women s", "ladies", "girls", "girl s", "female", "for her", "maternity", "womenswear",
	}
)

// genderOf returns "male", "female" or "" when the query has no cue or both.
func genderOf(q Query) string {
	m := q.HasAnyWord(maleCues...)
	f := q.HasAnyWord(femaleCues...)
	switch {
	case m && !f:
		return "male"
	case f && !m:
		return "female"
	default:
		return ""
	}
}

func hasGenderContext(q Query) bool { return genderOf(q) != "" }

func applyGender(products []product.Product, q Query) []product.Product {
	opposite := femaleOnlyProduct
	if genderOf(q) == "female" {
		opposite = maleOnlyProduct
	}
	return keep(products, true, func(p *product.Product) bool {
		name := words(p.Name)
		return !hasAnyWord(name, opposite) || hasWord(name, "unisex")
	})
}

// --- age vs warranty ---

var (
	ageQueryRe   = regexp.MustCompile(`\b\d{1,2}\s*(year|yr)s?\s*old\b|\bage[ds]?\s*\d{1,2}\b`)
	warrantyRe   = regexp.MustCompile(`\b\d{1,2}\s*(year|yr)s?\s*(warranty|guarantee|protection|cover)\b`)
	ageQueryCues = []string{
		"toddler", "baby", "babies", "newborn", "preschool", "kids", "child", "children", "teen", "teenager",
	}
)

func hasAgeContext(q Query) bool {
	return ageQueryRe.MatchString(q.Raw) || ageQueryRe.MatchString(q.Text) || q.HasAnyWord(ageQueryCues...)
}

func applyAgeWarranty(products []product.Product, _ Query) []product.Product {
	return keep(products, true, func(p *product.Product) bool {
		name := p.LowerName()
		return !warrantyRe.MatchString(name) && !strings.Contains(name, "warranty")
	})
}

// --- costume ---

var (
	costumeQueryCues   = []string{"costume", "fancy dress", "dress up", "dressing up", "cosplay"}
	costumeProductCues = []string{
		"costume", "fancy dress", "dress up", "dressing up", "cosplay", "disguise", "role play",
		"roleplay", "mask", "cape",
	}
)

func hasCostumeContext(q Query) bool { return q.HasAnyWord(costumeQueryCues...) }

func applyCostume(products []product.Product, _ Query) []product.Product {
	return keep(products, true, func(p *product.Product) bool {
		return hasAnyWord(words(p.Text()), costumeProductCues)
	})
}

// --- toy vs clothing ---

var (
	toyQueryCues = []string{
		"toy", "figure", "action figure", "playset", "play set", "plush", "soft toy", "doll",
		"teddy", "lego", "building set",
	}
	clothingCues = []string{
		"t shirt", "tee", "hoodie", "sweatshirt", "jumper", "pyjamas", "pajamas", "pjs", "socks",
		"leggings", "onesie", "vest", "dress", "shirt", "shorts", "joggers", "nightie", "slippers",
		"hat", "beanie", "tshirt",
	}
)

func hasToyContext(q Query) bool {
	return q.HasAnyWord(toyQueryCues...) && !q.HasAnyWord(clothingCues...) && !q.HasAnyWord(costumeQueryCues...)
}

func applyToy(products []product.Product, _ Query) []product.Product {
	return keep(products, true, func(p *product.Product) bool {
		name := words(p.Name)
		return !hasAnyWord(name, clothingCues) || hasAnyWord(name, toyQueryCues)
	})
}

// --- water gun ---

var (
	waterGunQueryCues   = []string{"water gun", "water pistol", "water blaster", "super soaker", "squirt gun"}
	waterGunProductCues = []string{"water", "soaker", "squirt", "aqua", "splash", "pool"}
)

func hasWaterGunContext(q Query) bool { return q.HasAnyWord(waterGunQueryCues...) }

func applyWaterGun(products []product.Product, _ Query) []product.Product {
	return keep(products, true, func(p *product.Product) bool {
		return hasAnyWord(words(p.Name), waterGunProductCues)
	})
}

// --- media formats ---

var mediaFormats = []string{"dvd", "blu ray", "bluray", "cd", "vinyl", "audiobook", "soundtrack", "album", "4k"}

func hasMediaContext(q Query) bool { return q.HasAnyWord(mediaFormats...) }

func applyMedia(products []product.Product, q Query) []product.Product {
	var wanted []string
	for _, f := range mediaFormats {
		if q.HasWord(f) {
			wanted = append(wanted, f)
		}
	}
	return keep(products, true, func(p *product.Product) bool {
		return hasAnyWord(words(p.Text()), wanted)
	})
}

// --- film ---

var (
	filmQueryCues     = []string{"movie", "film"}
	filmProductCues   = []string{"dvd", "blu ray", "bluray", "4k", "uhd", "movie", "film", "box set", "collection"}
	nonMediaFilmTerms = []string{
		"cling film", "window film", "privacy film", "screen protector", "laminating", "laminator",
		"instant film", "instax", "polaroid", "camera film", "tint film", "protective film",
	}
)

func hasFilmContext(q Query) bool { return hasAnyWord(words(q.Raw), filmQueryCues) }

func applyFilm(products []product.Product, _ Query) []product.Product {
	return keep(products, true, func(p *product.Product) bool {
		text := p.Text()
		if containsAny(text, nonMediaFilmTerms) {
			return false
		}
		return hasAnyWord(words(text), filmProductCues)
	})
}

// --- book vs travel ---

var (
	bookQueryCues = []string{"book", "novel", "paperback", "hardback"}
	travelCues    = []string{
		"hotel", "flight", "holiday", "trip", "travel", "getaway", "short break", "spa break",
		"city break", "stay", "tickets", "booking", "experience day",
	}
)

func hasBookContext(q Query) bool {
	return q.HasAnyWord(bookQueryCues...) && !q.HasAnyWord(travelCues...)
}

func applyBookTravel(products []product.Product, _ Query) []product.Product {
	return keep(products, true, func(p *product.Product) bool {
		return !hasAnyWord(words(p.Name), travelCues)
	})
}

// --- blind: window blinds vs blind boxes ---

var (
	blindToyCues    = []string{"blind box", "blind bag", "surprise", "mystery", "collectible", "collectable"}
	blindWindowCues = []string{"window", "roller", "venetian", "roman", "blackout", "vertical", "curtain"}
)

func hasBlindContext(q Query) bool { return q.HasWord("blind") }

func applyBlind(products []product.Product, q Query) []product.Product {
	if q.HasAnyWord(blindToyCues...) {
		return keep(products, true, func(p *product.Product) bool {
			return hasAnyWord(words(p.Text()), blindToyCues)
		})
	}
	return keep(products, true, func(p *product.Product) bool {
		name := words(p.Name)
		if hasWord(name, "blindfold") {
			return false
		}
		return !hasAnyWord(name, blindToyCues) || hasAnyWord(name, blindWindowCues)
	})
}

// --- Stitch character vs sewing ---

var sewingCues = []string{
	"cross stitch", "sewing", "embroidery", "stitching", "stitch marker", "needle", "needlepoint",
	"knitting", "crochet", "thread", "tapestry",
}

func hasStitchContext(q Query) bool {
	return q.HasWord("stitch") && !q.HasAnyWord(sewingCues...)
}

func applyStitch(products []product.Product, _ Query) []product.Product {
	return keep(products, true, func(p *product.Product) bool {
		return !hasAnyWord(words(p.Text()), sewingCues)
	})
}

// --- franchise characters sharing a name with trade terms ---

type character struct {
	franchise []string
	trade     []string
}

var franchiseCharacters = map[string]character{
	"rubble": {
		franchise: []string{"paw patrol"},
		trade:     []string{"rubble sack", "rubble bag", "rubble bucket", "builders", "hardcore", "aggregate", "skip"},
	},
	"scoop": {
		franchise: []string{"bob the builder"},
		trade:     []string{"shovel", "ice cream", "flour", "measuring", "pet food", "litter"},
	},
	"muck": {
		franchise: []string{"bob the builder"},
		trade:     []string{"muck bucket", "muck boots", "muckers", "wheelbarrow", "stable", "manure"},
	},
	"digger": {
		franchise: []string{"toy", "kids", "remote control", "rc", "ride on"},
		trade:     []string{"mini digger hire", "bucket teeth", "excavator bucket", "hydraulic"},
	},
	"dizzy": {
		franchise: []string{"bob the builder"},
		trade:     []string{"cement mixer", "concrete mixer", "mortar"},
	},
	"steve": {
		franchise: []string{"minecraft"},
		trade:     []string{"steel", "stove"},
	},
}

func matchedCharacters(q Query) []string {
	var out []string
	for name := range franchiseCharacters {
		if q.HasWord(name) {
			out = append(out, name)
		}
	}
	return out
}

func hasFranchiseCharacter(q Query) bool { return len(matchedCharacters(q)) > 0 }

func applyFranchiseCharacter(products []product.Product, q Query) []product.Product {
	chars := matchedCharacters(q)
	return keep(products, true, func(p *product.Product) bool {
		text := words(p.Text())
		for _, name := range chars {
			c := franchiseCharacters[name]
			if hasAnyWord(text, c.trade) && !hasAnyWord(text, c.franchise) {
				return false
			}
		}
		return true
	})
}

// --- generic word-boundary collision guard ---

// Collisions maps a query word to longer words that contain it but mean
// something else.
var Collisions = map[string][]string{
	"train": {"trainer", "trainers", "training"},
	"cat":   {"category", "catalogue", "cattle", "catapult", "caterpillar", "catch"},
	"car":   {"card", "cardigan", "carpet", "cartoon", "cargo", "caravan", "carrot", "carry"},
	"pen":   {"pendant", "penguin", "pencil", "penny"},
	"ball":  {"ballet", "balloon", "ballerina", "ballpoint"},
	"bat":   {"bath", "battery", "batman", "baton"},
	"doll":  {"dollar"},
	"art":   {"party", "heart", "smart", "cartoon", "start"},
	"hat":   {"chat", "hatch"},
	"ring":  {"earring", "spring", "string", "ringer"},
	"cap":   {"cape", "capsule", "captain"},
	"bear":  {"beard", "bearing"},
	"watch": {"watchman", "watching"},
	"lamp":  {"clamp"},
	"tent":  {"content", "potent"},
	"kite":  {"kitten"},
	"game":  {"gamepad"},
}

func collisionWords(q Query) []string {
	var out []string
	for w := range Collisions {
		if q.HasWord(w) {
			out = append(out, w)
		}
	}
	return out
}

func hasCollisionWord(q Query) bool { return len(collisionWords(q)) > 0 }

func applyCollision(products []product.Product, q Query) []product.Product {
	ws := collisionWords(q)
	return keep(products, true, func(p *product.Product) bool {
		lower := p.Text()
		text := words(lower)
		for _, w := range ws {
			if hasWord(text, w) {
				continue
			}
			if containsAny(lower, Collisions[w]) {
				return false
			}
		}
		return true
	})
}
