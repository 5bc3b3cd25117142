// Package shade resolves a prim's bound surface shader into an albedo
// sample: a constant color, a texture image, or both.
//
// Scene materials arrive in several vendor encodings. The resolver walks the
// binding to the surface shader, picks the decoder for the encoding it finds,
// and degrades gracefully - unsupported or broken networks record a glitch
// and fall back to the prim's displayColor, never an abort.
//
// Supported encodings:
//   - UsdPreviewSurface (diffuseColor constant or connected file texture)
//   - OmniPBR MDL source assets (diffuse_texture, diffuse_color_constant)
//   - glTF MDL source assets (base_color_texture, base_color_factor)
package shade

import (
	"image"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/dolly/glitch"
	"github.com/teranos/dolly/stage"
)

// Shader network attribute and relationship names the decoders read.
const (
	AttrInfoID               = "info:id"
	AttrImplementationSource = "info:implementationSource"
	AttrMDLSubIdentifier     = "info:mdl:sourceAsset:subIdentifier"

	ShaderPreviewSurface = "UsdPreviewSurface"
	SubIDOmniPBR         = "OmniPBR"
	SubIDGLTF            = "gltf_material"

	RelSurfaceOutput    = "outputs:surface"
	RelMDLSurfaceOutput = "outputs:mdl:surface"

	InputDiffuseColor     = "inputs:diffuseColor"
	InputFile             = "inputs:file"
	InputTexture          = "inputs:texture"
	InputDiffuseTexture   = "inputs:diffuse_texture"
	InputDiffuseConstant  = "inputs:diffuse_color_constant"
	InputBaseColorTexture = "inputs:base_color_texture"
	InputBaseColorFactor  = "inputs:base_color_factor"
)

// Albedo is a resolved surface sample. Either field may be nil; a nil Albedo
// means the prim offered nothing usable at all.
type Albedo struct {
	// Color is a constant linear RGB sample in [0, 1].
	Color *[3]float32
	// Texture is the decoded albedo texture, vertically flipped into image
	// orientation and normalized to RGBA.
	Texture image.Image
	// TexturePath is the resolved location the texture came from, for
	// reports and diagnostics.
	TexturePath string
}

// ResolverConfig configures shader resolution.
type ResolverConfig struct {
	// Logger receives resolution warnings. Defaults to a nop logger.
	Logger *zap.Logger
	// Glitches collects resolution defects. Defaults to a fresh handler.
	Glitches *glitch.Handler
	// HTTPClient fetches URL textures. Defaults to a 30 second timeout.
	HTTPClient *http.Client
	// CacheDir holds downloaded textures. Defaults to DefaultCacheDir().
	CacheDir string
}

// DefaultResolverConfig returns the config used when fields are left zero.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Logger:     zap.NewNop(),
		Glitches:   glitch.NewHandler("shade", nil),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		CacheDir:   DefaultCacheDir(),
	}
}

// Resolver resolves surface shaders against one stage.
type Resolver struct {
	st       *stage.Stage
	logger   *zap.Logger
	glitches *glitch.Handler
	client   *http.Client
	cacheDir string

	mu       sync.Mutex
	textures map[string]image.Image
}

// NewResolver creates a resolver for the given stage.
func NewResolver(st *stage.Stage, cfg ResolverConfig) *Resolver {
	def := DefaultResolverConfig()
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.Glitches == nil {
		cfg.Glitches = def.Glitches
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = def.HTTPClient
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = def.CacheDir
	}
	return &Resolver{
		st:       st,
		logger:   cfg.Logger,
		glitches: cfg.Glitches,
		client:   cfg.HTTPClient,
		cacheDir: cfg.CacheDir,
		textures: make(map[string]image.Image),
	}
}

// Glitches returns the handler collecting this resolver's defects.
func (r *Resolver) Glitches() *glitch.Handler { return r.glitches }

// Albedo resolves the albedo sample for a prim. Unsupported or broken shader
// networks record a glitch and fall back to the prim's displayColor; a prim
// with neither returns nil.
func (r *Resolver) Albedo(prim *stage.Prim) *Albedo {
	shader := r.surfaceShader(prim)
	if shader == nil {
		return r.displayColorFallback(prim)
	}

	switch {
	case r.shaderID(shader) == ShaderPreviewSurface:
		return r.previewSurface(shader, prim)
	case r.mdlSubIdentifier(shader) == SubIDOmniPBR:
		return r.omniPBR(shader, prim)
	case r.mdlSubIdentifier(shader) == SubIDGLTF:
		return r.gltfMaterial(shader, prim)
	}

	r.logger.Warn("unsupported surface shader",
		zap.String("prim", prim.Path().String()),
		zap.String("shader", shader.Path().String()),
		zap.String("id", r.shaderID(shader)),
		zap.String("sub_identifier", r.mdlSubIdentifier(shader)))
	r.glitches.Record(glitch.NewFlicker("shader", "unsupported surface shader", glitch.Context{
		"prim":   prim.Path().String(),
		"shader": shader.Path().String(),
		"id":     r.shaderID(shader),
	}))
	return r.displayColorFallback(prim)
}

// surfaceShader walks prim -> bound material -> surface shader. The
// universal surface output is preferred, then the MDL one.
func (r *Resolver) surfaceShader(prim *stage.Prim) *stage.Prim {
	matPath, ok := prim.FirstTarget(stage.RelMaterialBinding)
	if !ok {
		return nil
	}
	material := r.st.GetPrimAtPath(matPath)
	if material == nil {
		r.glitches.Record(glitch.NewFlicker("stage", "material binding targets a missing prim", glitch.Context{
			"prim":     prim.Path().String(),
			"material": matPath.String(),
		}))
		return nil
	}

	for _, output := range []string{RelSurfaceOutput, RelMDLSurfaceOutput} {
		target, ok := material.FirstTarget(output)
		if !ok {
			continue
		}
		if shader := r.st.GetPrimAtPath(target); shader != nil {
			return shader
		}
	}

	// A material prim that is itself the shader (flat test fixtures)
	if material.HasAttribute(AttrInfoID) || material.HasAttribute(AttrMDLSubIdentifier) {
		return material
	}

	// Single shader child is an accepted shorthand
	for _, child := range material.Children() {
		if child.IsA(stage.TypeShader) {
			return child
		}
	}
	return nil
}

func (r *Resolver) shaderID(shader *stage.Prim) string {
	id, _ := shader.Token(AttrInfoID)
	return id
}

func (r *Resolver) mdlSubIdentifier(shader *stage.Prim) string {
	sub, _ := shader.Token(AttrMDLSubIdentifier)
	return sub
}

// previewSurface decodes a UsdPreviewSurface shader: a connected texture on
// diffuseColor wins, else the constant color.
func (r *Resolver) previewSurface(shader, prim *stage.Prim) *Albedo {
	albedo := &Albedo{Color: r.colorInput(shader, InputDiffuseColor)}
	if asset, ok := r.previewSurfaceAsset(shader); ok {
		r.attachTexture(albedo, asset, prim)
	}
	return r.finishAlbedo(albedo, prim)
}

func (r *Resolver) previewSurfaceAsset(shader *stage.Prim) (string, bool) {
	if source := r.connectedSource(shader, InputDiffuseColor); source != nil {
		return source.Asset(InputFile)
	}
	return "", false
}

// omniPBR decodes an OmniPBR MDL shader: diffuse_texture directly or via a
// connected source, plus the diffuse color constant.
func (r *Resolver) omniPBR(shader, prim *stage.Prim) *Albedo {
	albedo := &Albedo{Color: r.colorInput(shader, InputDiffuseConstant)}
	if asset, ok := r.omniPBRAsset(shader); ok {
		r.attachTexture(albedo, asset, prim)
	}
	return r.finishAlbedo(albedo, prim)
}

func (r *Resolver) omniPBRAsset(shader *stage.Prim) (string, bool) {
	if asset, ok := shader.Asset(InputDiffuseTexture); ok {
		return asset, true
	}
	if source := r.connectedSource(shader, InputDiffuseTexture); source != nil {
		return r.sourceAsset(source)
	}
	return "", false
}

// gltfMaterial decodes a glTF MDL shader: base_color_texture directly or via
// a connected source's texture input, plus the base color factor.
func (r *Resolver) gltfMaterial(shader, prim *stage.Prim) *Albedo {
	albedo := &Albedo{Color: r.colorInput(shader, InputBaseColorFactor)}
	if asset, ok := r.gltfAsset(shader); ok {
		r.attachTexture(albedo, asset, prim)
	}
	return r.finishAlbedo(albedo, prim)
}

func (r *Resolver) gltfAsset(shader *stage.Prim) (string, bool) {
	if asset, ok := shader.Asset(InputBaseColorTexture); ok {
		return asset, true
	}
	if source := r.connectedSource(shader, InputBaseColorTexture); source != nil {
		if asset, ok := source.Asset(InputTexture); ok {
			return asset, true
		}
		return r.sourceAsset(source)
	}
	return "", false
}

// TextureAsset returns the texture asset the prim's shader references,
// without loading it. Prefetch uses this to enumerate work.
func (r *Resolver) TextureAsset(prim *stage.Prim) (string, bool) {
	shader := r.surfaceShader(prim)
	if shader == nil {
		return "", false
	}
	switch {
	case r.shaderID(shader) == ShaderPreviewSurface:
		return r.previewSurfaceAsset(shader)
	case r.mdlSubIdentifier(shader) == SubIDOmniPBR:
		return r.omniPBRAsset(shader)
	case r.mdlSubIdentifier(shader) == SubIDGLTF:
		return r.gltfAsset(shader)
	}
	return "", false
}

// connectedSource follows an input connection relationship to its source
// prim, nil when the input is unconnected.
func (r *Resolver) connectedSource(shader *stage.Prim, input string) *stage.Prim {
	target, ok := shader.FirstTarget(input)
	if !ok {
		return nil
	}
	source := r.st.GetPrimAtPath(target)
	if source == nil {
		r.glitches.Record(glitch.NewFlicker("shader", "input connection targets a missing prim", glitch.Context{
			"shader": shader.Path().String(),
			"input":  input,
			"target": target.String(),
		}))
	}
	return source
}

// sourceAsset reads whichever asset input a texture-reader prim carries.
func (r *Resolver) sourceAsset(source *stage.Prim) (string, bool) {
	if asset, ok := source.Asset(InputFile); ok {
		return asset, true
	}
	if asset, ok := source.Asset(InputTexture); ok {
		return asset, true
	}
	return "", false
}

// colorInput reads a constant color input as float32 RGB.
func (r *Resolver) colorInput(shader *stage.Prim, input string) *[3]float32 {
	if v, ok := shader.Vec3(input); ok {
		c := [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
		return &c
	}
	return nil
}

// attachTexture loads an asset into the albedo, degrading to the constant
// color on failure.
func (r *Resolver) attachTexture(albedo *Albedo, asset string, prim *stage.Prim) {
	img, resolved, err := r.LoadTexture(asset)
	if err != nil {
		r.logger.Warn("texture load failed",
			zap.String("prim", prim.Path().String()),
			zap.String("asset", asset),
			zap.Error(err))
		r.glitches.Record(glitch.NewFlicker("texture", "texture load failed", glitch.Context{
			"prim":  prim.Path().String(),
			"asset": asset,
			"error": err.Error(),
		}))
		return
	}
	albedo.Texture = img
	albedo.TexturePath = resolved
}

// finishAlbedo applies the displayColor fallback when a decoder came up
// completely empty.
func (r *Resolver) finishAlbedo(albedo *Albedo, prim *stage.Prim) *Albedo {
	if albedo.Color == nil && albedo.Texture == nil {
		return r.displayColorFallback(prim)
	}
	return albedo
}

// displayColorFallback reads the prim's first authored displayColor.
func (r *Resolver) displayColorFallback(prim *stage.Prim) *Albedo {
	colors, ok := prim.Vec3fArray(stage.AttrDisplayColor)
	if !ok || len(colors) == 0 {
		return nil
	}
	c := colors[0]
	return &Albedo{Color: &c}
}
